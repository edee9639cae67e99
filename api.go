package sessioncache

import (
	"time"

	c "github.com/unkn0wn-root/sessioncache/codec"
	idx "github.com/unkn0wn-root/sessioncache/index"
	"github.com/unkn0wn-root/sessioncache/notify"
	pr "github.com/unkn0wn-root/sessioncache/provider"
)

// StoreOptions tune an expiring Store.
// Only Provider and Codec are required; others have sensible defaults.
type StoreOptions[V any] struct {
	// Required
	Provider pr.Provider
	Codec    c.Codec[V]

	Index  idx.Index // nil => LocalIndex (in-process)
	Logger Logger    // if nil, NopLogger is used
	Hooks  Hooks     // if nil, NopHooks is used

	DefaultTTL    time.Duration // Put with ttl <= 0; 0 => 1m
	ExpiryGrace   time.Duration // physical retention past logical expiry; 0 => 5m
	SweepInterval time.Duration // 0 => 1s
	SweepBatch    int           // max entries expired per pass; 0 => 512
	DisableSweep  bool          // rely on read-time detection and manual Sweep calls
	OpTimeout     time.Duration // per backing call; 0 => 2s, < 0 => none

	Delivery notify.Options // listener fan-out; OnError is chained after logging
	Now      func() time.Time

	// OwnProvider makes Close close the provider too. Leave false when several
	// stores share one provider.
	OwnProvider bool
}

// SessionOptions configure Sessions.
type SessionOptions struct {
	Namespace string        // key prefix; "" => "session"
	TTL       time.Duration // fixed for the namespace; 0 => 60s
}

// FacadeOptions configure a cache-aside Facade.
type FacadeOptions struct {
	Name string        // cache name prefixed as "<Name>::"; "" => "sessions"
	TTL  time.Duration // fixed for the cache; 0 => 3m
}
