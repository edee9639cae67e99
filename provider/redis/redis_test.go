package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestProvider(t *testing.T, prefix string) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	p, err := New(Config{Client: rdb, Prefix: prefix, CloseClient: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p, mr
}

func TestNilClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p, mr := newTestProvider(t, "demo:")

	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte{0, 1, 2}, 1, time.Minute); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("demo:k") {
		t.Fatalf("expected prefixed key in redis")
	}
	if ttl := mr.TTL("demo:k"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}
	b, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || string(b) != string([]byte{0, 1, 2}) {
		t.Fatalf("Get: ok=%v err=%v b=%x", ok, err, b)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del twice: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestPhysicalExpiry(t *testing.T) {
	ctx := context.Background()
	p, mr := newTestProvider(t, "")

	if _, err := p.Set(ctx, "k", []byte("v"), 1, time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss after ttl, ok=%v err=%v", ok, err)
	}
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	p, mr := newTestProvider(t, "")
	mr.Close()

	if _, _, err := p.Get(ctx, "k"); err == nil {
		t.Fatalf("expected transport error from closed server")
	}
	if _, err := p.Set(ctx, "k", []byte("v"), 1, time.Second); err == nil {
		t.Fatalf("expected transport error from closed server")
	}
}
