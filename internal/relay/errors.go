package relay

import "errors"

var (
	// ErrUpstreamUnavailable means the initial upstream connection failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamLost means an established upstream connection failed or closed.
	ErrUpstreamLost = errors.New("upstream lost")
	// ErrUpstreamNotStreaming is reported by the readiness check.
	ErrUpstreamNotStreaming = errors.New("upstream is not streaming")

	// ErrQueueClosed means the hub closed the session's delivery queue.
	ErrQueueClosed = errors.New("delivery queue closed")
	// ErrSubscriberWrite means a frame could not be written to the subscriber.
	ErrSubscriberWrite = errors.New("subscriber write failed")
	// ErrSubscriberGone means the subscriber closed its connection.
	ErrSubscriberGone = errors.New("subscriber disconnected")
)
