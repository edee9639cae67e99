package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	c "github.com/unkn0wn-root/sessioncache/codec"
	idx "github.com/unkn0wn-root/sessioncache/index"
	"github.com/unkn0wn-root/sessioncache/internal/wire"
	"github.com/unkn0wn-root/sessioncache/notify"
	pr "github.com/unkn0wn-root/sessioncache/provider"
)

// Store is a key -> V store with per-key TTL and expiry notification.
//
// Every value is framed with its logical deadline. Get never returns a value past that
// deadline; the read that notices it performs the expiry itself. A background sweep
// expires entries nobody reads. Either way the index claim decides who announces the
// expiry, so each expiry reaches listeners once.
type Store[V any] struct {
	provider pr.Provider
	codec    c.Codec[V]
	index    idx.Index
	notifier *notify.Notifier[V]
	log      Logger
	hooks    Hooks
	now      func() time.Time

	defaultTTL    time.Duration
	grace         time.Duration
	sweepInterval time.Duration
	sweepBatch    int
	opTimeout     time.Duration
	ownProvider   bool

	locks keyLocks

	// background sweep
	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

func NewStore[V any](opts StoreOptions[V]) (*Store[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("sessioncache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("sessioncache: codec is required")
	}

	s := &Store[V]{
		provider:    opts.Provider,
		codec:       opts.Codec,
		ownProvider: opts.OwnProvider,
	}

	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.index = coalesce[idx.Index](opts.Index, nil)
	if s.index == nil {
		s.index = idx.NewLocalIndex()
	}
	s.now = opts.Now
	if s.now == nil {
		s.now = time.Now
	}
	s.defaultTTL = coalesce(opts.DefaultTTL, defaultStoreTTL)
	s.grace = coalesce(opts.ExpiryGrace, defaultExpiryGrace)
	s.sweepInterval = coalesce(opts.SweepInterval, defaultSweep)
	s.sweepBatch = coalesce(opts.SweepBatch, defaultSweepBatch)
	s.opTimeout = coalesce(opts.OpTimeout, defaultOpTimeout)

	delivery := opts.Delivery
	userOnError := delivery.OnError
	delivery.OnError = func(le *ListenerError) {
		s.log.Warn("expiry listener failed", Fields{"key": le.Key, "subscription": le.Subscription, "err": le.Err})
		s.hooks.ListenerFailed(le)
		if userOnError != nil {
			userOnError(le)
		}
	}
	s.notifier = notify.New[V](delivery)

	if !opts.DisableSweep {
		s.ticker = time.NewTicker(s.sweepInterval)
		s.stopCh = make(chan struct{})
		s.closeWg.Add(1)
		go s.sweepLoop()
	}
	return s, nil
}

// Close stops the sweep, delivers queued events and closes the index (and the
// provider when OwnProvider is set).
func (s *Store[V]) Close(ctx context.Context) error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.closeWg.Wait()
			s.ticker.Stop()
		}
		if err := s.notifier.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := s.index.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if s.ownProvider {
			if err := s.provider.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// Put stores value under key until now+ttl, replacing any previous value and deadline.
// ttl <= 0 uses the store's DefaultTTL. A previous value that is already past its
// deadline is expired first, so overwriting never swallows its event.
func (s *Store[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	if key == "" {
		return invalidArg("empty key")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	payload, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("sessioncache: encode %q: %w", key, err)
	}

	ev, replaced, err := s.write(ctx, key, payload, ttl)
	if replaced {
		s.announce(ctx, ev, DetectedByWrite)
	}
	return err
}

func (s *Store[V]) write(ctx context.Context, key string, payload []byte, ttl time.Duration) (notify.Event[V], bool, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	octx, cancel := s.opCtx(ctx)
	defer cancel()

	ev, replaced, err := s.claimLocked(octx, key, s.now().UnixMilli())
	if err != nil {
		return ev, false, unavailable("put", key, err)
	}

	expiresAt := s.now().Add(ttl).UnixMilli()
	frame := wire.EncodeEntry(expiresAt, payload)

	ok, err := s.provider.Set(octx, key, frame, 1, ttl+s.grace)
	if err != nil {
		return ev, replaced, unavailable("put", key, err)
	}
	if !ok {
		s.log.Debug("put rejected by provider (pressure)", Fields{"key": key})
		s.hooks.ProviderSetRejected(key)
		return ev, replaced, nil
	}
	if err := s.index.Track(octx, key, expiresAt); err != nil {
		s.hooks.IndexError("track", key, err)
		return ev, replaced, unavailable("put", key, err)
	}
	return ev, replaced, nil
}

// Get returns the live value for key. An entry past its deadline is never returned,
// whether or not the sweep has reached it yet.
func (s *Store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	v, _, ok, err := s.Lookup(ctx, key)
	return v, ok, err
}

// Lookup is Get that also reports the deadline of the returned value.
func (s *Store[V]) Lookup(ctx context.Context, key string) (V, time.Time, bool, error) {
	var zero V
	if key == "" {
		return zero, time.Time{}, false, invalidArg("empty key")
	}

	octx, cancel := s.opCtx(ctx)
	raw, ok, err := s.provider.Get(octx, key)
	cancel()
	if err != nil {
		return zero, time.Time{}, false, unavailable("get", key, err)
	}
	if !ok {
		return zero, time.Time{}, false, nil
	}

	expiresAt, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		s.selfHeal(ctx, key, "corrupt")
		return zero, time.Time{}, false, nil
	}
	if s.now().UnixMilli() >= expiresAt {
		if _, err := s.expire(ctx, key, DetectedByRead); err != nil {
			return zero, time.Time{}, false, err
		}
		return zero, time.Time{}, false, nil
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		s.selfHeal(ctx, key, "value_decode")
		return zero, time.Time{}, false, nil
	}
	return v, time.UnixMilli(expiresAt), true, nil
}

// Delete removes key immediately. It never produces an expiry event and is a no-op
// for missing keys.
func (s *Store[V]) Delete(ctx context.Context, key string) error {
	if key == "" {
		return invalidArg("empty key")
	}
	unlock := s.locks.lock(key)
	defer unlock()

	octx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.provider.Del(octx, key); err != nil {
		return unavailable("delete", key, err)
	}
	if err := s.index.Untrack(octx, key); err != nil {
		s.hooks.IndexError("untrack", key, err)
		return unavailable("delete", key, err)
	}
	return nil
}

// OnExpire registers l for every expiry of this store.
func (s *Store[V]) OnExpire(l notify.Listener[V]) notify.Subscription {
	return s.notifier.Subscribe(l)
}

// Notifier exposes the fan-out, e.g. to Sync in tests or check State.
func (s *Store[V]) Notifier() *notify.Notifier[V] { return s.notifier }

// Sweep runs one pass over due entries and reports how many expired.
func (s *Store[V]) Sweep(ctx context.Context) (int, error) {
	start := time.Now()

	octx, cancel := s.opCtx(ctx)
	due, err := s.index.Due(octx, s.now().UnixMilli(), s.sweepBatch)
	cancel()
	if err != nil {
		s.hooks.IndexError("due", "", err)
		return 0, unavailable("sweep", "", err)
	}

	expired := 0
	var errs []error
	for _, e := range due {
		ok, err := s.expire(ctx, e.Key, DetectedBySweep)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			expired++
		}
	}
	s.hooks.SweepDone(expired, time.Since(start))
	return expired, errors.Join(errs...)
}

// expire re-reads key under its lock and, if it is past its deadline, claims it,
// deletes it and publishes the event. Reports whether this call announced an expiry.
func (s *Store[V]) expire(ctx context.Context, key, detectedBy string) (bool, error) {
	ev, claimed, err := s.claimExpired(ctx, key)
	if err != nil || !claimed {
		return false, err
	}
	s.announce(ctx, ev, detectedBy)
	return true, nil
}

// announce publishes a claimed expiry. It runs outside the key lock since listeners
// may touch the store. The claim is spent, so the caller's cancellation must not stop
// the event from being queued.
func (s *Store[V]) announce(ctx context.Context, ev notify.Event[V], detectedBy string) {
	if err := s.notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Error("expiry event not delivered", Fields{"key": ev.Key, "err": err})
	}
	s.log.Debug("entry expired", Fields{"key": ev.Key, "detectedBy": detectedBy, "valueLost": ev.ValueLost})
	s.hooks.Expired(ev.Key, detectedBy)
}

func (s *Store[V]) claimExpired(ctx context.Context, key string) (notify.Event[V], bool, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	octx, cancel := s.opCtx(ctx)
	defer cancel()

	ev, claimed, err := s.claimLocked(octx, key, s.now().UnixMilli())
	if err != nil {
		return ev, false, unavailable("expire", key, err)
	}
	return ev, claimed, nil
}

// claimLocked expires key if it is due at nowMs. The caller holds the key lock and
// wraps the returned error with its own op.
func (s *Store[V]) claimLocked(ctx context.Context, key string, nowMs int64) (notify.Event[V], bool, error) {
	var ev notify.Event[V]

	raw, ok, err := s.provider.Get(ctx, key)
	if err != nil {
		return ev, false, err
	}

	var (
		expiresAt int64
		payload   []byte
		lost      = !ok
	)
	if ok {
		expiresAt, payload, err = wire.DecodeEntry(raw)
		if err != nil {
			lost = true
		} else if nowMs < expiresAt {
			return ev, false, nil // live, or rewritten since it was found due
		}
	}
	if lost {
		// payload is gone; fall back to whatever deadline the index still holds
		tracked, err := s.trackedDeadline(ctx, key, nowMs)
		if err != nil {
			return ev, false, err
		}
		if tracked == 0 {
			if ok {
				_ = s.provider.Del(ctx, key)
			}
			return ev, false, nil
		}
		expiresAt = tracked
	}

	claimed, err := s.index.Claim(ctx, key, expiresAt)
	if err != nil {
		s.hooks.IndexError("claim", key, err)
		return ev, false, err
	}
	if ok {
		if err := s.provider.Del(ctx, key); err != nil {
			s.log.Warn("delete of expired entry failed", Fields{"key": key, "err": err})
		}
	}
	if !claimed {
		return ev, false, nil
	}

	ev = notify.Event[V]{Key: key, ExpiredAt: time.UnixMilli(expiresAt), ValueLost: lost}
	if !lost {
		v, err := s.codec.Decode(payload)
		if err != nil {
			s.hooks.SelfHeal(key, "value_decode")
			ev.ValueLost = true
		} else {
			ev.Value = v
		}
	}
	return ev, true, nil
}

// trackedDeadline returns key's deadline if the index holds one that is due at nowMs,
// 0 otherwise.
func (s *Store[V]) trackedDeadline(ctx context.Context, key string, nowMs int64) (int64, error) {
	expiresAt, ok, err := s.index.Deadline(ctx, key)
	if err != nil {
		s.hooks.IndexError("deadline", key, err)
		return 0, err
	}
	if !ok || expiresAt > nowMs {
		return 0, nil
	}
	return expiresAt, nil
}

func (s *Store[V]) selfHeal(ctx context.Context, key, reason string) {
	unlock := s.locks.lock(key)
	defer unlock()

	octx, cancel := s.opCtx(ctx)
	defer cancel()
	_ = s.provider.Del(octx, key)
	_ = s.index.Untrack(octx, key)
	s.log.Warn("dropped undecodable entry", Fields{"key": key, "reason": reason})
	s.hooks.SelfHeal(key, reason)
}

func (s *Store[V]) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Store[V]) sweepLoop() {
	defer s.closeWg.Done()
	for {
		select {
		case <-s.ticker.C:
			n, err := s.Sweep(context.Background())
			if err != nil {
				s.log.Warn("sweep failed", Fields{"err": err, "expired": n})
			}
		case <-s.stopCh:
			return
		}
	}
}
