package broadcast

import "context"

// Message wraps a broadcast payload.
type Message[T any] struct {
	Data T
}

// Broadcaster sends messages to multiple subscribers.
type Broadcaster[T any] interface {
	// Broadcast delivers msg to every current subscriber without blocking.
	Broadcast(ctx context.Context, msg Message[T]) error
	// Subscribe registers a new delivery queue. It is removed when ctx is cancelled
	// or the returned Subscriber is closed.
	Subscribe(ctx context.Context) Subscriber[T]
	// Close closes every subscriber queue and rejects further broadcasts.
	Close() error
}

// Subscriber is a bounded, ordered delivery queue.
type Subscriber[T any] interface {
	// Receive returns the queue channel. It is closed when the subscription ends.
	Receive() <-chan Message[T]
	// Dropped reports how many messages were discarded by the overflow policy.
	Dropped() uint64
	Close() error
}

// OverflowPolicy decides what happens when a subscriber queue is full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest buffered message to make room.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming message for the full subscriber.
	DropNewest
	// Disconnect closes the full subscriber.
	Disconnect
)

// String returns the policy name.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	case Disconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy maps a policy name to its value.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "", "drop_oldest":
		return DropOldest, nil
	case "drop_newest":
		return DropNewest, nil
	case "disconnect":
		return Disconnect, nil
	default:
		return DropOldest, ErrUnknownPolicy
	}
}
