package broadcast_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wsrelay/pkg/broadcast"
)

func publish(t *testing.T, b broadcast.Broadcaster[string], msgs ...string) {
	t.Helper()
	for _, m := range msgs {
		require.NoError(t, b.Broadcast(context.Background(), broadcast.Message[string]{Data: m}))
	}
}

// drain reads everything currently buffered without blocking.
func drain(sub broadcast.Subscriber[string]) []string {
	var out []string
	for {
		select {
		case msg, ok := <-sub.Receive():
			if !ok {
				return out
			}
			out = append(out, msg.Data)
		default:
			return out
		}
	}
}

func receiveN(t *testing.T, sub broadcast.Subscriber[string], n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for len(out) < n {
		select {
		case msg, ok := <-sub.Receive():
			if !ok {
				t.Errorf("subscriber closed after %d messages", len(out))
				return out
			}
			out = append(out, msg.Data)
		case <-time.After(time.Second):
			t.Errorf("timeout after %d of %d messages", len(out), n)
			return out
		}
	}
	return out
}

func TestMemoryBroadcaster_LateSubscriberScenario(t *testing.T) {
	t.Parallel()

	hub := broadcast.NewMemoryBroadcaster[string](10)
	defer hub.Close()

	ctx := context.Background()
	s1 := hub.Subscribe(ctx)
	publish(t, hub, "a", "b")
	s2 := hub.Subscribe(ctx)
	publish(t, hub, "c")

	assert.Equal(t, []string{"a", "b", "c"}, drain(s1))
	assert.Equal(t, []string{"c"}, drain(s2))
}

func TestMemoryBroadcaster_FanOutOrdering(t *testing.T) {
	t.Parallel()

	const (
		subscribers = 8
		messages    = 200
	)

	hub := broadcast.NewMemoryBroadcaster[string](messages)
	defer hub.Close()

	subs := make([]broadcast.Subscriber[string], subscribers)
	for i := range subs {
		subs[i] = hub.Subscribe(context.Background())
	}

	expected := make([]string, messages)
	for i := range expected {
		expected[i] = fmt.Sprintf("msg-%d", i)
	}

	var wg sync.WaitGroup
	results := make([][]string, subscribers)
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub broadcast.Subscriber[string]) {
			defer wg.Done()
			results[i] = receiveN(t, sub, messages)
		}(i, sub)
	}

	publish(t, hub, expected...)
	wg.Wait()

	for i := range results {
		assert.Equal(t, expected, results[i], "subscriber %d", i)
	}
}

func TestMemoryBroadcaster_ExactPayload(t *testing.T) {
	t.Parallel()

	hub := broadcast.NewMemoryBroadcaster[string](1)
	sub := hub.Subscribe(context.Background())
	publish(t, hub, "hello world")

	assert.Equal(t, []string{"hello world"}, drain(sub))
}

func TestMemoryBroadcaster_Overflow(t *testing.T) {
	t.Parallel()

	const capacity, extra = 5, 3

	burst := make([]string, capacity+extra)
	for i := range burst {
		burst[i] = fmt.Sprintf("%d", i)
	}

	t.Run("drop_oldest_keeps_most_recent", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryBroadcaster[string](capacity)
		sub := hub.Subscribe(context.Background())

		done := make(chan struct{})
		go func() {
			defer close(done)
			for _, m := range burst {
				assert.NoError(t, hub.Broadcast(context.Background(), broadcast.Message[string]{Data: m}))
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("broadcast blocked on a full queue")
		}

		assert.Equal(t, burst[extra:], drain(sub))
		assert.Equal(t, uint64(extra), sub.Dropped())
	})

	t.Run("drop_newest_keeps_earliest", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryBroadcaster[string](capacity,
			broadcast.WithOverflowPolicy(broadcast.DropNewest))
		sub := hub.Subscribe(context.Background())
		publish(t, hub, burst...)

		assert.Equal(t, burst[:capacity], drain(sub))
		assert.Equal(t, uint64(extra), sub.Dropped())
	})

	t.Run("disconnect_closes_slow_subscriber", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryBroadcaster[string](capacity,
			broadcast.WithOverflowPolicy(broadcast.Disconnect))
		slow := hub.Subscribe(context.Background())
		publish(t, hub, burst[:capacity]...)

		fast := hub.Subscribe(context.Background())
		publish(t, hub, burst[capacity:]...)

		assert.Equal(t, burst[:capacity], drain(slow))
		_, ok := <-slow.Receive()
		assert.False(t, ok)
		assert.Equal(t, burst[capacity:], drain(fast))
		assert.Equal(t, 1, hub.Len())
	})
}

func TestMemoryBroadcaster_SubscriberClose(t *testing.T) {
	t.Parallel()

	hub := broadcast.NewMemoryBroadcaster[string](10)
	defer hub.Close()

	ctx := context.Background()
	s1 := hub.Subscribe(ctx)
	s2 := hub.Subscribe(ctx)
	s3 := hub.Subscribe(ctx)
	require.Equal(t, 3, hub.Len())

	publish(t, hub, "1")
	require.NoError(t, s2.Close())
	require.NoError(t, s2.Close())
	publish(t, hub, "2", "3")

	assert.Equal(t, 2, hub.Len())
	assert.Equal(t, []string{"1", "2", "3"}, drain(s1))
	assert.Equal(t, []string{"1", "2", "3"}, drain(s3))
	assert.Equal(t, []string{"1"}, drain(s2))
}

func TestMemoryBroadcaster_ContextCancelUnsubscribes(t *testing.T) {
	t.Parallel()

	hub := broadcast.NewMemoryBroadcaster[string](10)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx)
	require.Equal(t, 1, hub.Len())

	cancel()

	require.Eventually(t, func() bool {
		return hub.Len() == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := <-sub.Receive()
	assert.False(t, ok)
}

func TestMemoryBroadcaster_Close(t *testing.T) {
	t.Parallel()

	hub := broadcast.NewMemoryBroadcaster[string](10)
	sub := hub.Subscribe(context.Background())
	publish(t, hub, "last")

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	assert.Equal(t, []string{"last"}, drain(sub))
	_, ok := <-sub.Receive()
	assert.False(t, ok)

	err := hub.Broadcast(context.Background(), broadcast.Message[string]{Data: "x"})
	assert.ErrorIs(t, err, broadcast.ErrBroadcasterClosed)

	late := hub.Subscribe(context.Background())
	_, ok = <-late.Receive()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Len())
}

func TestMemoryBroadcaster_ConcurrentSubscribeAndPublish(t *testing.T) {
	t.Parallel()

	hub := broadcast.NewMemoryBroadcaster[int](1000)
	defer hub.Close()

	const workers = 20

	var wg sync.WaitGroup
	subs := make(chan broadcast.Subscriber[int], workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subs <- hub.Subscribe(context.Background())
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 500 {
			_ = hub.Broadcast(context.Background(), broadcast.Message[int]{Data: i})
		}
	}()

	wg.Wait()
	close(subs)

	assert.Equal(t, workers, hub.Len())

	// Each subscriber sees a contiguous suffix of the published sequence.
	for sub := range subs {
		got := drainInts(sub)
		for i := 1; i < len(got); i++ {
			assert.Equal(t, got[i-1]+1, got[i])
		}
	}
}

func drainInts(sub broadcast.Subscriber[int]) []int {
	var out []int
	for {
		select {
		case msg, ok := <-sub.Receive():
			if !ok {
				return out
			}
			out = append(out, msg.Data)
		default:
			return out
		}
	}
}

func TestNewMemoryBroadcaster_NormalizesBufferSize(t *testing.T) {
	t.Parallel()

	hub := broadcast.NewMemoryBroadcaster[string](0)
	sub := hub.Subscribe(context.Background())
	publish(t, hub, "a", "b")

	assert.Equal(t, []string{"b"}, drain(sub))
}

func TestParseOverflowPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    broadcast.OverflowPolicy
		wantErr bool
	}{
		{"", broadcast.DropOldest, false},
		{"drop_oldest", broadcast.DropOldest, false},
		{"drop_newest", broadcast.DropNewest, false},
		{"disconnect", broadcast.Disconnect, false},
		{"block", broadcast.DropOldest, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := broadcast.ParseOverflowPolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, broadcast.ErrUnknownPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}
