package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/wsrelay/core/logger"
	"github.com/dmitrymomot/wsrelay/pkg/broadcast"
)

// State is the upstream reader lifecycle. There is no transition back from
// StateTerminated.
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Publisher accepts messages read from upstream.
type Publisher interface {
	Broadcast(ctx context.Context, msg broadcast.Message[string]) error
}

// ReaderOption configures Dial.
type ReaderOption func(*Reader)

// WithReaderLogger sets the reader logger.
func WithReaderLogger(l *slog.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDialTimeout bounds the upstream handshake.
func WithDialTimeout(d time.Duration) ReaderOption {
	return func(r *Reader) {
		r.dialer.HandshakeTimeout = d
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) ReaderOption {
	return func(r *Reader) {
		if d != nil {
			r.dialer = *d
		}
	}
}

// Reader owns the single upstream connection and feeds every text frame into
// the hub.
type Reader struct {
	url      string
	hub      Publisher
	dialer   websocket.Dialer
	conn     *websocket.Conn
	logger   *slog.Logger
	state    atomic.Int32
	received atomic.Uint64
}

// Dial connects to the upstream at url. A failure here is fatal to startup and
// wraps ErrUpstreamUnavailable.
func Dial(ctx context.Context, url string, hub Publisher, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		url:    url,
		hub:    hub,
		dialer: *websocket.DefaultDialer,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("relay.upstream"))

	conn, _, err := r.dialer.DialContext(ctx, url, nil)
	if err != nil {
		r.state.Store(int32(StateTerminated))
		r.logger.ErrorContext(ctx, "failed to connect to upstream", logger.URL(url), logger.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, url, err)
	}

	r.conn = conn
	r.state.Store(int32(StateStreaming))
	r.logger.InfoContext(ctx, "connected to upstream", logger.URL(url))

	return r, nil
}

// Run reads frames until the upstream fails. Each text frame is published before
// the next read; other frame types are skipped. Any read error is returned wrapped
// in ErrUpstreamLost. Cancelling ctx closes the connection and Run returns nil.
func (r *Reader) Run(ctx context.Context) error {
	defer r.state.Store(int32(StateTerminated))
	defer r.conn.Close()

	// ReadMessage has no context support; closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() {
		_ = r.conn.Close()
	})
	defer stop()

	for {
		typ, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				r.logger.InfoContext(ctx, "upstream reader stopped", logger.Count("received", int(r.received.Load())))
				return nil
			}
			r.logger.ErrorContext(ctx, "upstream connection lost",
				logger.URL(r.url),
				logger.Count("received", int(r.received.Load())),
				logger.Error(err),
			)
			return fmt.Errorf("%w: %w", ErrUpstreamLost, err)
		}

		if typ != websocket.TextMessage {
			r.logger.DebugContext(ctx, "skipping non-text upstream frame", logger.Key("frame_type", typ))
			continue
		}

		r.received.Add(1)
		msg := string(data)
		r.logger.DebugContext(ctx, "received from upstream", logger.Size(len(data)))

		if err := r.hub.Broadcast(ctx, broadcast.Message[string]{Data: msg}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("publish upstream message: %w", err)
		}
	}
}

// State returns the current lifecycle state.
func (r *Reader) State() State {
	return State(r.state.Load())
}

// Received returns the number of text frames published so far.
func (r *Reader) Received() uint64 {
	return r.received.Load()
}

// URL returns the upstream address.
func (r *Reader) URL() string {
	return r.url
}

// Healthcheck reports ErrUpstreamNotStreaming unless the reader is streaming.
func (r *Reader) Healthcheck(context.Context) error {
	if s := r.State(); s != StateStreaming {
		return fmt.Errorf("%w: %s", ErrUpstreamNotStreaming, s)
	}
	return nil
}
