package index

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLocalDueOrderedAndLimited(t *testing.T) {
	ctx := context.Background()
	s := NewLocalIndex()
	t.Cleanup(func() { _ = s.Close(ctx) })

	_ = s.Track(ctx, "c", 30)
	_ = s.Track(ctx, "a", 10)
	_ = s.Track(ctx, "b", 20)
	_ = s.Track(ctx, "future", 100)

	got, err := s.Due(ctx, 30, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Key != "a" || got[1].Key != "b" || got[2].Key != "c" {
		t.Fatalf("got=%v want a,b,c", got)
	}

	got, _ = s.Due(ctx, 30, 2)
	if len(got) != 2 || got[1].Key != "b" {
		t.Fatalf("limit: got=%v", got)
	}
}

func TestLocalTrackMovesDeadline(t *testing.T) {
	ctx := context.Background()
	s := NewLocalIndex()

	_ = s.Track(ctx, "k", 10)
	_ = s.Track(ctx, "k", 50)
	if got, _ := s.Due(ctx, 20, 0); len(got) != 0 {
		t.Fatalf("moved deadline should not be due, got %v", got)
	}
	if ok, _ := s.Claim(ctx, "k", 10); ok {
		t.Fatalf("claim with stale deadline must fail")
	}
	if ok, _ := s.Claim(ctx, "k", 50); !ok {
		t.Fatalf("claim with current deadline must succeed")
	}
	if s.Len() != 0 {
		t.Fatalf("claimed key should be gone")
	}
}

func TestLocalUntrackThenClaim(t *testing.T) {
	ctx := context.Background()
	s := NewLocalIndex()

	_ = s.Track(ctx, "k", 10)
	if err := s.Untrack(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if err := s.Untrack(ctx, "k"); err != nil {
		t.Fatalf("untrack twice: %v", err)
	}
	if ok, _ := s.Claim(ctx, "k", 10); ok {
		t.Fatalf("untracked key must not be claimable")
	}
}

func TestLocalClaimExactlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewLocalIndex()
	_ = s.Track(ctx, "k", 10)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Claim(ctx, "k", 10); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestLocalDeadline(t *testing.T) {
	ctx := context.Background()
	s := NewLocalIndex()

	if _, ok, err := s.Deadline(ctx, "k"); err != nil || ok {
		t.Fatalf("untracked key: ok=%v err=%v", ok, err)
	}
	_ = s.Track(ctx, "k", 10)
	_ = s.Track(ctx, "k", 70)
	if exp, ok, _ := s.Deadline(ctx, "k"); !ok || exp != 70 {
		t.Fatalf("Deadline = %d, %v; want 70", exp, ok)
	}
}
