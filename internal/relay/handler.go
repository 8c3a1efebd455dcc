package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/wsrelay/core/logger"
	"github.com/dmitrymomot/wsrelay/pkg/clientip"
	"github.com/dmitrymomot/wsrelay/pkg/broadcast"
)

// Subscribable issues delivery queues.
type Subscribable interface {
	Subscribe(ctx context.Context) broadcast.Subscriber[string]
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithReadBuffer sets the upgrader read buffer size. Non-positive sizes are ignored.
func WithReadBuffer(size int) HandlerOption {
	return func(h *Handler) {
		if size > 0 {
			h.upgrader.ReadBufferSize = size
		}
	}
}

// WithWriteBuffer sets the upgrader write buffer size. Non-positive sizes are ignored.
func WithWriteBuffer(size int) HandlerOption {
	return func(h *Handler) {
		if size > 0 {
			h.upgrader.WriteBufferSize = size
		}
	}
}

// WithHandshakeTimeout bounds the upgrade handshake.
func WithHandshakeTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.upgrader.HandshakeTimeout = timeout
	}
}

// WithAllowAnyOrigin disables the same-origin check.
func WithAllowAnyOrigin() HandlerOption {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = func(*http.Request) bool {
			return true
		}
	}
}

// WithHandlerLogger sets the handler logger. Sessions inherit it.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSessionOptions applies opts to every session the handler starts.
func WithSessionOptions(opts ...SessionOption) HandlerOption {
	return func(h *Handler) {
		h.sessionOpts = append(h.sessionOpts, opts...)
	}
}

// Handler accepts downstream subscribers. Each upgraded connection is subscribed to
// the hub right after the handshake and served by its own Session on the request
// goroutine.
type Handler struct {
	hub         Subscribable
	upgrader    websocket.Upgrader
	logger      *slog.Logger
	sessionOpts []SessionOption

	mu     sync.Mutex
	active int
	idle   chan struct{}
}

// NewHandler creates a subscriber handler on hub.
func NewHandler(hub Subscribable, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("relay.session"))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Counted from the handshake so Wait cannot miss a session that is upgrading.
	h.sessionStarted()
	defer h.sessionEnded()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.logger.WarnContext(ctx, "websocket handshake failed",
			logger.ClientIP(clientip.GetIP(r)),
			logger.Error(err),
		)
		return
	}

	sub := h.hub.Subscribe(ctx)
	opts := append([]SessionOption{WithSessionLogger(h.logger)}, h.sessionOpts...)
	session := NewSession(conn, sub, opts...)

	log := h.logger.With(logger.SessionID(session.ID()), logger.ClientIP(clientip.GetIP(r)))
	log.InfoContext(ctx, "new subscriber connection")

	start := time.Now()
	err = session.Run(ctx)

	attrs := []any{logger.Elapsed(start), logger.Dropped(session.Dropped())}
	switch {
	case errors.Is(err, ErrQueueClosed):
		log.InfoContext(ctx, "subscriber session closed by hub", attrs...)
	case errors.Is(err, ErrSubscriberGone) && isNormalClose(err):
		log.InfoContext(ctx, "subscriber disconnected", attrs...)
	default:
		log.WarnContext(ctx, "subscriber session ended", append(attrs, logger.Error(err))...)
	}
}

// Active returns the number of sessions currently running.
func (h *Handler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Wait blocks until no session is running or ctx is done. Sessions end when the
// hub closes their queues, so close the hub first.
func (h *Handler) Wait(ctx context.Context) error {
	h.mu.Lock()
	if h.active == 0 {
		h.mu.Unlock()
		return nil
	}
	if h.idle == nil {
		h.idle = make(chan struct{})
	}
	idle := h.idle
	h.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) sessionStarted() {
	h.mu.Lock()
	h.active++
	h.mu.Unlock()
}

func (h *Handler) sessionEnded() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active--
	if h.active == 0 && h.idle != nil {
		close(h.idle)
		h.idle = nil
	}
}

// isNormalClose unwraps err, which websocket.IsCloseError does not do.
func isNormalClose(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	}
	return false
}
