package sessioncache

import (
	"time"
)

// Detection sources passed to Hooks.Expired.
const (
	DetectedBySweep = "sweep"
	DetectedByRead  = "read"
	DetectedByWrite = "write" // a Put replaced an entry already past its deadline
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow ones with hooks/async.
type Hooks interface {
	// An entry expired and its event was published.
	// detectedBy ∈ {"sweep", "read", "write"}
	Expired(key, detectedBy string)

	// An entry was deleted because it could not be decoded.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(key, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(key string)

	// The index failed during a store operation.
	// op ∈ {"track", "untrack", "claim", "due", "deadline"}
	IndexError(op, key string, err error)

	// A listener failed while handling an expiry event.
	ListenerFailed(err *ListenerError)

	// One sweep pass completed.
	SweepDone(expired int, took time.Duration)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Expired(string, string)           {}
func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) ProviderSetRejected(string)       {}
func (NopHooks) IndexError(string, string, error) {}
func (NopHooks) ListenerFailed(*ListenerError)    {}
func (NopHooks) SweepDone(int, time.Duration)     {}
