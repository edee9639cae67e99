package sessioncache

import "time"

const (
	defaultStoreTTL    = time.Minute
	defaultExpiryGrace = 5 * time.Minute
	defaultSweep       = time.Second
	defaultSweepBatch  = 512
	defaultOpTimeout   = 2 * time.Second

	DefaultSessionNamespace = "session"
	DefaultSessionTTL       = 60 * time.Second
	DefaultFacadeName       = "sessions"
	DefaultFacadeTTL        = 3 * time.Minute
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
