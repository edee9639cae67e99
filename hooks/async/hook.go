// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/sessioncache"
//	"github.com/unkn0wn-root/sessioncache/codec"
//	"github.com/unkn0wn-root/sessioncache/hooks/async"
//	"github.com/unkn0wn-root/sessioncache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:  10, // sample logs: ~every 10th self-heal
//	    SweepDoneEvery: 60, // one sweep summary a minute at 1s interval
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	store, _ := sessioncache.NewStore[sessioncache.Session](sessioncache.StoreOptions[sessioncache.Session]{
//	    Provider: provider,
//	    Codec:    codec.JSON[sessioncache.Session]{},
//	    Hooks:    hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/sessioncache"
)

// Hooks forwards to inner on worker goroutines. When the queue is full the hook
// call is dropped; expiry events themselves are never routed through here.
type Hooks struct {
	inner   sessioncache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64

	closeMu sync.RWMutex
	closed  bool
}

var _ sessioncache.Hooks = (*Hooks)(nil)

func New(inner sessioncache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close runs whatever is queued and stops the workers. Hooks called after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closeMu.Lock()
		h.closed = true
		close(h.q)
		h.closeMu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many hook calls were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.closeMu.RLock()
	defer h.closeMu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Expired(k, by string)         { h.try(func() { h.inner.Expired(k, by) }) }
func (h *Hooks) SelfHeal(k, r string)         { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string) { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) IndexError(op, k string, err error) {
	h.try(func() { h.inner.IndexError(op, k, err) })
}
func (h *Hooks) ListenerFailed(err *sessioncache.ListenerError) {
	h.try(func() { h.inner.ListenerFailed(err) })
}
func (h *Hooks) SweepDone(n int, took time.Duration) {
	h.try(func() { h.inner.SweepDone(n, took) })
}
