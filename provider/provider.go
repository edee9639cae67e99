// Package provider defines the backing key-value service used by sessioncache.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the bytes
// previously passed to Set for a key. sessioncache frames every value with its logical
// deadline, so a provider that ignores or coarsens TTLs (BigCache's global life window,
// bbolt) is still correct; the TTL passed to Set is only a physical retention hint and is
// always longer than the logical TTL.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Safe for concurrent use.
// Each call is atomic for its key: concurrent Sets leave one of the values, never a mix.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (<= 0 means no expiry). May ignore cost.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Missing keys are not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
