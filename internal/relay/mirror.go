package relay

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/wsrelay/core/logger"
	"github.com/dmitrymomot/wsrelay/pkg/broadcast"
)

// RedisPublisher is the subset of the go-redis client used by Mirror.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithMirrorLogger sets the mirror logger.
func WithMirrorLogger(l *slog.Logger) MirrorOption {
	return func(m *Mirror) {
		if l != nil {
			m.logger = l
		}
	}
}

// Mirror is a hub subscriber that republishes every relayed message onto a Redis
// pub/sub channel. Publish failures are logged and counted; they never affect the
// relay.
type Mirror struct {
	client   RedisPublisher
	channel  string
	sub      broadcast.Subscriber[string]
	logger   *slog.Logger
	mirrored atomic.Uint64
	failed   atomic.Uint64
}

// NewMirror creates a mirror draining sub into channel.
func NewMirror(client RedisPublisher, channel string, sub broadcast.Subscriber[string], opts ...MirrorOption) *Mirror {
	m := &Mirror{
		client:  client,
		channel: channel,
		sub:     sub,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("relay.mirror"), logger.Key("channel", channel))
	return m
}

// Run publishes queued messages until ctx is cancelled or the queue closes.
func (m *Mirror) Run(ctx context.Context) error {
	defer m.sub.Close()

	m.logger.InfoContext(ctx, "mirroring relayed messages to redis")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-m.sub.Receive():
			if !ok {
				return nil
			}
			if err := m.client.Publish(ctx, m.channel, msg.Data).Err(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.failed.Add(1)
				m.logger.WarnContext(ctx, "failed to mirror message", logger.Error(err))
				continue
			}
			m.mirrored.Add(1)
		}
	}
}

// Mirrored returns the number of messages published to Redis.
func (m *Mirror) Mirrored() uint64 {
	return m.mirrored.Load()
}

// Failed returns the number of publish failures.
func (m *Mirror) Failed() uint64 {
	return m.failed.Load()
}
