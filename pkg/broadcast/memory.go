package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

// Option configures a MemoryBroadcaster.
type Option func(*options)

type options struct {
	policy OverflowPolicy
}

// WithOverflowPolicy sets how full subscriber queues are handled. Defaults to DropOldest.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// MemoryBroadcaster is an in-memory Broadcaster.
type MemoryBroadcaster[T any] struct {
	// pubMu serializes Broadcast so every queue observes the same order.
	pubMu       sync.Mutex
	mu          sync.RWMutex
	subscribers map[*memorySubscriber[T]]struct{}
	bufferSize  int
	policy      OverflowPolicy
	closed      bool
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers buffer up to bufferSize
// messages each. Sizes below 1 are raised to 1.
func NewMemoryBroadcaster[T any](bufferSize int, opts ...Option) *MemoryBroadcaster[T] {
	o := options{policy: DropOldest}
	for _, opt := range opts {
		opt(&o)
	}
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &MemoryBroadcaster[T]{
		subscribers: make(map[*memorySubscriber[T]]struct{}),
		bufferSize:  bufferSize,
		policy:      o.policy,
	}
}

// Broadcast enqueues msg into every registered subscriber queue.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	var slow []*memorySubscriber[T]

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBroadcasterClosed
	}
	for sub := range b.subscribers {
		if !sub.deliver(msg, b.policy) {
			slow = append(slow, sub)
		}
	}
	b.mu.RUnlock()

	// Closing takes the write lock, so it must happen outside the read section.
	for _, sub := range slow {
		_ = sub.Close()
	}

	return nil
}

// Subscribe registers a new subscriber. After Close the returned subscriber's
// channel is already closed.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := &memorySubscriber[T]{
		ch:          make(chan Message[T], b.bufferSize),
		done:        make(chan struct{}),
		broadcaster: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.shutdown()
		return sub
	}
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub
}

// Len returns the number of registered subscribers.
func (b *MemoryBroadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber queues. Safe to call more than once.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*memorySubscriber[T], 0, len(b.subscribers))
	for sub := range b.subscribers {
		subs = append(subs, sub)
	}
	clear(b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
	return nil
}

func (b *MemoryBroadcaster[T]) remove(sub *memorySubscriber[T]) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
}

type memorySubscriber[T any] struct {
	ch          chan Message[T]
	done        chan struct{}
	broadcaster *MemoryBroadcaster[T]
	dropped     atomic.Uint64

	mu     sync.Mutex
	closed bool
}

func (s *memorySubscriber[T]) Receive() <-chan Message[T] {
	return s.ch
}

func (s *memorySubscriber[T]) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *memorySubscriber[T]) Close() error {
	s.broadcaster.remove(s)
	s.shutdown()
	return nil
}

// shutdown closes the queue channel exactly once.
func (s *memorySubscriber[T]) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	close(s.done)
}

// deliver enqueues msg according to policy. It returns false when the subscriber
// must be disconnected.
func (s *memorySubscriber[T]) deliver(msg Message[T], policy OverflowPolicy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}

	for {
		select {
		case s.ch <- msg:
			return true
		default:
		}

		switch policy {
		case DropNewest:
			s.dropped.Add(1)
			return true
		case Disconnect:
			s.dropped.Add(1)
			return false
		}

		// The consumer may drain the queue concurrently, so the eviction is best effort
		// and the send is retried.
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}
