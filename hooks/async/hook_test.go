package asynchook

import (
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/sessioncache"
)

type recordingHooks struct {
	sessioncache.NopHooks
	mu      sync.Mutex
	expired []string
	block   chan struct{}
}

func (r *recordingHooks) Expired(key, by string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.expired = append(r.expired, key+"@"+by)
	r.mu.Unlock()
}

func TestForwardsAndDrainsOnClose(t *testing.T) {
	inner := &recordingHooks{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.Expired("k", sessioncache.DetectedBySweep)
	}
	h.Close()

	if len(inner.expired) != 10 {
		t.Fatalf("expected 10 forwarded calls, got %d", len(inner.expired))
	}
	h.Expired("late", sessioncache.DetectedByRead)
	if h.Dropped() != 1 {
		t.Fatalf("call after Close should be dropped, dropped=%d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	inner := &recordingHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// worker takes one and blocks, queue holds one, the rest drop
	h.Expired("a", sessioncache.DetectedBySweep)
	deadline := time.Now().Add(time.Second)
	for len(h.q) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Expired("b", sessioncache.DetectedBySweep)
	h.Expired("c", sessioncache.DetectedBySweep)
	h.Expired("d", sessioncache.DetectedBySweep)

	if h.Dropped() != 2 {
		t.Fatalf("expected 2 dropped, got %d", h.Dropped())
	}
	close(inner.block)
	h.Close()
	if len(inner.expired) != 2 {
		t.Fatalf("expected 2 delivered, got %v", inner.expired)
	}
}
