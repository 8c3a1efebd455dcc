package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/wsrelay/core/logger"
	"github.com/dmitrymomot/wsrelay/pkg/broadcast"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second

	// Subscribers only send control frames; anything larger is a protocol abuse.
	maxInboundMessageSize = 512
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithWriteTimeout bounds each frame write to the subscriber.
func WithWriteTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive period. Zero disables pings and read deadlines.
func WithPingInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		s.pingInterval = d
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session relays one delivery queue onto one downstream connection.
// It owns both exclusively and releases them when Run returns.
type Session struct {
	id           string
	conn         *websocket.Conn
	sub          broadcast.Subscriber[string]
	logger       *slog.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
}

// NewSession binds an upgraded connection to a freshly subscribed queue.
func NewSession(conn *websocket.Conn, sub broadcast.Subscriber[string], opts ...SessionOption) *Session {
	s := &Session{
		id:           uuid.NewString(),
		conn:         conn,
		sub:          sub,
		logger:       logger.Discard(),
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Dropped reports messages this session lost to the overflow policy.
func (s *Session) Dropped() uint64 {
	return s.sub.Dropped()
}

// Run writes each queued message as one text frame, in order. It returns when a
// write fails (ErrSubscriberWrite), the peer disconnects (ErrSubscriberGone) or the
// hub closes the queue (ErrQueueClosed). The queue and connection are released in
// every case.
func (s *Session) Run(ctx context.Context) error {
	defer s.sub.Close()
	defer s.conn.Close()

	peerGone := make(chan error, 1)
	go s.readPump(peerGone)

	var ping <-chan time.Time
	if s.pingInterval > 0 {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case msg, ok := <-s.sub.Receive():
			if !ok {
				s.closeFrame(websocket.CloseGoingAway, "upstream closed")
				return ErrQueueClosed
			}
			if err := s.write(websocket.TextMessage, []byte(msg.Data)); err != nil {
				return fmt.Errorf("%w: %w", ErrSubscriberWrite, err)
			}

		case <-ping:
			deadline := time.Now().Add(s.writeTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return fmt.Errorf("%w: ping: %w", ErrSubscriberWrite, err)
			}

		case err := <-peerGone:
			return fmt.Errorf("%w: %w", ErrSubscriberGone, err)
		}
	}
}

func (s *Session) write(typ int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(typ, data)
}

func (s *Session) closeFrame(code int, reason string) {
	deadline := time.Now().Add(s.writeTimeout)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}

// readPump discards subscriber data frames; reading is still required so that
// pong and close control frames are processed.
func (s *Session) readPump(done chan<- error) {
	s.conn.SetReadLimit(maxInboundMessageSize)

	if s.pingInterval > 0 {
		pongWait := 2 * s.pingInterval
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	} else {
		// The HTTP server's read deadline survives the hijack.
		_ = s.conn.SetReadDeadline(time.Time{})
	}

	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			done <- err
			return
		}
	}
}
