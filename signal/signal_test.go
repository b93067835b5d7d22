package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe()
	defer cancel1()
	ch2, cancel2 := h.Subscribe()
	defer cancel2()

	h.Publish(EventConnected, map[string]string{"topic": "t1"})

	for _, ch := range []<-chan Envelope{ch1, ch2} {
		select {
		case env := <-ch:
			assert.Equal(t, EventConnected, env.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive envelope")
		}
	}
}

func TestCancelDetachesSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	cancel()

	_, open := <-ch
	require.False(t, open, "expected channel closed after cancel")

	// Publishing after cancel must not panic.
	h.Publish(EventDisconnected, nil)

	// Cancel is idempotent.
	cancel()
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(EventApprovalPending, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
