package sessioncache

import (
	"context"
	"errors"
	"testing"
	"time"

	c "github.com/unkn0wn-root/sessioncache/codec"
	pr "github.com/unkn0wn-root/sessioncache/provider"
)

func newTestFacade(t *testing.T, p pr.Provider, clk *clock) *Facade[Session] {
	t.Helper()
	st, err := NewStore[Session](StoreOptions[Session]{
		Provider:     p,
		Codec:        c.JSON[Session]{},
		Now:          clk.Now,
		DisableSweep: true,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return NewFacade(st, FacadeOptions{})
}

type counter struct{ n int }

func (k *counter) compute(id string) func(context.Context) (Session, error) {
	return func(context.Context) (Session, error) {
		k.n++
		return Session{ID: id, Username: "user-" + id}, nil
	}
}

// bounded computes sessions that stay valid for ttl from the time they were computed.
func (k *counter) bounded(id string, clk *clock, ttl time.Duration) func(context.Context) (Session, error) {
	return func(context.Context) (Session, error) {
		k.n++
		return Session{ID: id, Username: "user-" + id, ExpiresAt: clk.Now().Add(ttl).UnixMilli()}, nil
	}
}

func TestFacadeKey(t *testing.T) {
	f := newTestFacade(t, newMemProvider(time.Now), newClock())

	if got := f.Key("SessionService", "find", "abc"); got != "sessions::SessionService_find_abc" {
		t.Fatalf("Key = %q", got)
	}
	if got := f.Key("SessionService", "all"); got != "sessions::SessionService_all_" {
		t.Fatalf("zero-arg Key = %q", got)
	}
}

func TestFacadeComputesOncePerTTL(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	f := newTestFacade(t, newMemProvider(clk.Now), clk)
	cnt := &counter{}

	for i := 0; i < 2; i++ {
		got, err := f.Invoke(ctx, "SessionService", "find", []any{"abc"}, cnt.compute("abc"))
		if err != nil || got.ID != "abc" {
			t.Fatalf("Invoke #%d: %+v %v", i, got, err)
		}
	}
	if cnt.n != 1 {
		t.Fatalf("compute ran %d times within TTL", cnt.n)
	}

	// different args are a different key
	_, _ = f.Invoke(ctx, "SessionService", "find", []any{"xyz"}, cnt.compute("xyz"))
	if cnt.n != 2 {
		t.Fatalf("distinct args should compute, n=%d", cnt.n)
	}

	clk.Advance(DefaultFacadeTTL)
	_, _ = f.Invoke(ctx, "SessionService", "find", []any{"abc"}, cnt.compute("abc"))
	if cnt.n != 3 {
		t.Fatalf("expired result should recompute, n=%d", cnt.n)
	}
}

func TestFacadeComputeErrorCachesNothing(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	f := newTestFacade(t, newMemProvider(clk.Now), clk)
	boom := errors.New("lookup failed")

	_, err := f.Invoke(ctx, "S", "find", []any{1}, func(context.Context) (Session, error) {
		return Session{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	cnt := &counter{}
	_, _ = f.Invoke(ctx, "S", "find", []any{1}, cnt.compute("1"))
	if cnt.n != 1 {
		t.Fatalf("failed compute must not populate the cache")
	}
}

func TestFacadeCancelledComputeCachesNothing(t *testing.T) {
	clk := newClock()
	f := newTestFacade(t, newMemProvider(clk.Now), clk)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.Invoke(ctx, "S", "find", []any{"abc"}, func(context.Context) (Session, error) {
		cancel()
		return Session{ID: "abc"}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	cnt := &counter{}
	_, _ = f.Invoke(context.Background(), "S", "find", []any{"abc"}, cnt.compute("abc"))
	if cnt.n != 1 {
		t.Fatalf("abandoned compute was cached")
	}
}

func TestFacadeWriteErrorReturnsValue(t *testing.T) {
	clk := newClock()
	boom := errors.New("readonly replica")
	f := newTestFacade(t, &faultyProvider{memProvider: newMemProvider(clk.Now), setErr: boom}, clk)
	cnt := &counter{}

	got, err := f.Invoke(context.Background(), "S", "find", []any{"abc"}, cnt.compute("abc"))
	if got.ID != "abc" {
		t.Fatalf("computed value should be returned, got %+v", got)
	}
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestFacadeEvict(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	f := newTestFacade(t, newMemProvider(clk.Now), clk)
	cnt := &counter{}

	_, _ = f.Invoke(ctx, "S", "find", []any{"abc"}, cnt.compute("abc"))
	if err := f.Evict(ctx, "S", "find", "abc"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	_, _ = f.Invoke(ctx, "S", "find", []any{"abc"}, cnt.compute("abc"))
	if cnt.n != 2 {
		t.Fatalf("evicted result should recompute, n=%d", cnt.n)
	}
}

func TestFacadeInvalidArgument(t *testing.T) {
	f := newTestFacade(t, newMemProvider(time.Now), newClock())
	cnt := &counter{}

	if _, err := f.Invoke(context.Background(), "", "find", nil, cnt.compute("x")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty target: %v", err)
	}
	if _, err := f.Invoke(context.Background(), "S", "", nil, cnt.compute("x")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty method: %v", err)
	}
	if cnt.n != 0 {
		t.Fatalf("compute ran for invalid input")
	}
}

func TestFacadeResultPastItsDeadlineIsAMiss(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	f := newTestFacade(t, newMemProvider(clk.Now), clk)
	cnt := &counter{}

	for i := 0; i < 2; i++ {
		if _, err := f.Invoke(ctx, "S", "find", []any{"abc"}, cnt.bounded("abc", clk, time.Minute)); err != nil {
			t.Fatalf("Invoke: %v", err)
		}
	}
	if cnt.n != 1 {
		t.Fatalf("compute ran %d times before the deadline", cnt.n)
	}

	// well inside the facade TTL, but past the result's own deadline
	clk.Advance(61 * time.Second)
	got, err := f.Invoke(ctx, "S", "find", []any{"abc"}, cnt.bounded("abc", clk, time.Minute))
	if err != nil || cnt.n != 2 {
		t.Fatalf("stale result served: n=%d err=%v", cnt.n, err)
	}
	if !got.Deadline().Equal(clk.Now().Add(time.Minute)) {
		t.Fatalf("expected the recomputed result, got %+v", got)
	}
}
