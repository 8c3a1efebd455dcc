// Package broadcast provides a generic single-producer, multi-subscriber fan-out hub
// with bounded per-subscriber buffering.
//
// # Architecture
//
// The package defines two main interfaces:
//   - Broadcaster: sends messages to every registered subscriber
//   - Subscriber: an ordered, bounded delivery queue owned by one consumer
//
// MemoryBroadcaster is the in-memory implementation used by the relay.
//
// # Usage
//
//	// Each subscriber buffers up to 100 messages
//	hub := broadcast.NewMemoryBroadcaster[string](100)
//	defer hub.Close()
//
//	sub := hub.Subscribe(ctx)
//	defer sub.Close()
//
//	go func() {
//		for msg := range sub.Receive() {
//			fmt.Println(msg.Data)
//		}
//	}()
//
//	_ = hub.Broadcast(ctx, broadcast.Message[string]{Data: "Hello, World!"})
//
// # Delivery Guarantees
//
// A message accepted by Broadcast is enqueued, in arrival order, into every queue that
// is registered at that moment. Subscribers registered afterwards never observe it.
// Broadcast never blocks on a slow consumer; a full queue is resolved by the configured
// OverflowPolicy:
//
//   - DropOldest (default): evict the oldest buffered message and enqueue the new one
//   - DropNewest: discard the new message for that subscriber only
//   - Disconnect: close the slow subscriber's queue
//
// Every dropped message is counted and exposed via Subscriber.Dropped.
//
// # Cleanup
//
// A subscription is removed from the registry when Close is called on it or when the
// context passed to Subscribe is cancelled. Closing the broadcaster closes every queue,
// which consumers observe as a closed Receive channel.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Broadcast calls are serialized
// so that concurrent publishers cannot interleave differently across queues.
package broadcast
