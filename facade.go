package sessioncache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/sessioncache/keycodec"
)

// NameSeparator joins the facade name and the call key.
const NameSeparator = "::"

// Bounded is implemented by results that carry a deadline of their own, such as a
// Session. A cached Bounded result past its deadline is a miss, whatever the facade
// TTL says.
type Bounded interface {
	Deadline() time.Time
}

// Facade is a cache-aside wrapper: look up, compute on miss, populate.
//
// Concurrent misses on one key may each compute and write; the last write wins.
type Facade[V any] struct {
	store *Store[V]
	name  string
	ttl   time.Duration
}

func NewFacade[V any](store *Store[V], opts FacadeOptions) *Facade[V] {
	return &Facade[V]{
		store: store,
		name:  coalesce(opts.Name, DefaultFacadeName),
		ttl:   coalesce(opts.TTL, DefaultFacadeTTL),
	}
}

// Key is "<name>::<target>_<method>_<args...>".
func (f *Facade[V]) Key(target, method string, args ...any) string {
	return f.name + NameSeparator + keycodec.Call(target, method, args...)
}

func (f *Facade[V]) Name() string { return f.name }

// Invoke returns the cached result for (target, method, args) or computes and caches it.
//
// A failed or abandoned compute caches nothing. If the result cannot be written, it is
// still returned together with the write error.
func (f *Facade[V]) Invoke(ctx context.Context, target, method string, args []any,
	compute func(context.Context) (V, error)) (V, error) {
	var zero V
	if target == "" || method == "" {
		return zero, invalidArg("empty target or method")
	}
	key := f.Key(target, method, args...)

	v, ok, err := f.store.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok && !f.outlived(v) {
		return v, nil
	}
	if ok {
		if err := f.store.Delete(ctx, key); err != nil {
			return zero, err
		}
	}

	v, err = compute(ctx)
	if err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := f.store.Put(ctx, key, v, f.ttl); err != nil {
		return v, err
	}
	return v, nil
}

func (f *Facade[V]) outlived(v V) bool {
	b, ok := any(v).(Bounded)
	if !ok {
		return false
	}
	d := b.Deadline()
	return !d.IsZero() && !f.store.now().Before(d)
}

// Evict drops the cached result for (target, method, args).
func (f *Facade[V]) Evict(ctx context.Context, target, method string, args ...any) error {
	if target == "" || method == "" {
		return invalidArg("empty target or method")
	}
	return f.store.Delete(ctx, f.Key(target, method, args...))
}
