package sessioncache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/sessioncache/notify"
)

var (
	// ErrStoreUnavailable matches every failure to reach the backing service
	// (provider or index), including timeouts. The core never retries.
	ErrStoreUnavailable = errors.New("sessioncache: store unavailable")
	// ErrInvalidArgument is returned before any I/O for empty ids/keys/names.
	ErrInvalidArgument = errors.New("sessioncache: invalid argument")
)

// ListenerError is what a failing expiry listener turns into. It is logged and
// reported through Hooks, never returned to store callers.
type ListenerError = notify.ListenerError

// StoreError wraps a backing-service failure for one operation.
// errors.Is(err, ErrStoreUnavailable) holds, and so does errors.Is against the cause
// (e.g. context.DeadlineExceeded).
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("sessioncache: %s %q: store unavailable: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

func unavailable(op, key string, err error) error {
	return &StoreError{Op: op, Key: key, Err: err}
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
