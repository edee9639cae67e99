// Package index tracks which keys are live and when they logically expire.
//
// The index is the claim point for expiry: whoever removes an entry through Claim owns
// the expiry and is the only one allowed to announce it. Use LocalIndex (default) for a
// single process, or RedisIndex to share tracking across processes and restarts.
package index

import (
	"context"
)

// Entry is a tracked key and its logical deadline in unix milliseconds.
type Entry struct {
	Key       string
	ExpiresAt int64
}

type Index interface {
	// Track records (or moves) key's deadline.
	Track(ctx context.Context, key string, expiresAt int64) error
	// Untrack forgets key. Missing keys are not an error.
	Untrack(ctx context.Context, key string) error
	// Claim removes key iff it is tracked with exactly expiresAt. At most one caller
	// gets true for a given (key, expiresAt).
	Claim(ctx context.Context, key string, expiresAt int64) (bool, error)
	// Deadline reports key's tracked deadline.
	Deadline(ctx context.Context, key string) (int64, bool, error)
	// Due returns up to limit entries with ExpiresAt <= now, earliest first.
	// limit <= 0 means no limit.
	Due(ctx context.Context, now int64, limit int) ([]Entry, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
