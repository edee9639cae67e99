// Package notify fans expiry events out to registered listeners.
//
// Listeners run in registration order. A listener that returns an error or panics is
// reported through Options.OnError and does not keep later listeners from running.
// Events are never dropped: with a delivery queue, Publish blocks while the queue is
// full.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrClosed = errors.New("notify: notifier closed")

// Event describes one expired entry.
type Event[V any] struct {
	Key       string
	Value     V
	ExpiredAt time.Time
	// ValueLost is set when the backing store dropped the payload before the expiry
	// was observed. Value is the zero value then.
	ValueLost bool
}

// Listener handles an event. Returned errors are reported, never propagated.
type Listener[V any] func(ctx context.Context, ev Event[V]) error

// State of a notifier.
type State int

const (
	Idle State = iota
	Subscribed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Subscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ListenerError is produced when a listener fails for an event.
type ListenerError struct {
	Key          string
	Subscription uint64
	Err          error
	Panic        any // non-nil when the listener panicked
}

func (e *ListenerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("notify: listener %d panicked on %q: %v", e.Subscription, e.Key, e.Panic)
	}
	return fmt.Sprintf("notify: listener %d failed on %q: %v", e.Subscription, e.Key, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

type Options struct {
	// Synchronous delivers on the publishing goroutine. Otherwise one dedicated
	// goroutine drains a queue of QueueSize (0 => 1024).
	Synchronous bool
	QueueSize   int
	// OnError receives every listener failure. nil => ignored.
	OnError func(*ListenerError)
}

type subscription[V any] struct {
	id uint64
	fn Listener[V]
}

type item[V any] struct {
	ev   Event[V]
	done chan struct{} // barrier when non-nil
}

type Notifier[V any] struct {
	mu     sync.RWMutex
	subs   []subscription[V]
	nextID uint64

	sync    bool
	onError func(*ListenerError)

	q         chan item[V]
	closeMu   sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New[V any](opts Options) *Notifier[V] {
	n := &Notifier[V]{sync: opts.Synchronous, onError: opts.OnError}
	if n.sync {
		return n
	}
	qlen := opts.QueueSize
	if qlen <= 0 {
		qlen = 1024
	}
	n.q = make(chan item[V], qlen)
	n.wg.Add(1)
	go n.loop()
	return n
}

// Subscription identifies a registered listener.
type Subscription struct {
	ID    uint64
	unsub func() bool
}

// Unsubscribe removes the listener; false if it was already gone.
func (s Subscription) Unsubscribe() bool {
	if s.unsub == nil {
		return false
	}
	return s.unsub()
}

// Subscribe appends l to the listener list and moves the notifier to Subscribed.
func (n *Notifier[V]) Subscribe(l Listener[V]) Subscription {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription[V]{id: id, fn: l})
	n.mu.Unlock()
	return Subscription{ID: id, unsub: func() bool { return n.Unsubscribe(id) }}
}

func (n *Notifier[V]) Unsubscribe(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return true
		}
	}
	return false
}

// UnsubscribeAll drops every listener, returning the notifier to Idle.
func (n *Notifier[V]) UnsubscribeAll() {
	n.mu.Lock()
	n.subs = nil
	n.mu.Unlock()
}

func (n *Notifier[V]) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if len(n.subs) == 0 {
		return Idle
	}
	return Subscribed
}

// Len reports the number of registered listeners.
func (n *Notifier[V]) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Publish hands ev to every listener registered at delivery time.
// It blocks while the queue is full; ctx only bounds that wait.
func (n *Notifier[V]) Publish(ctx context.Context, ev Event[V]) error {
	if n.sync {
		if n.isClosed() {
			return ErrClosed
		}
		n.deliver(ctx, ev)
		return nil
	}
	return n.enqueue(ctx, item[V]{ev: ev})
}

// Sync waits until every event published before the call has been delivered.
func (n *Notifier[V]) Sync(ctx context.Context) error {
	if n.sync {
		return nil
	}
	done := make(chan struct{})
	if err := n.enqueue(ctx, item[V]{done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close delivers whatever is queued and stops the delivery goroutine.
func (n *Notifier[V]) Close(ctx context.Context) error {
	n.closeOnce.Do(func() {
		n.closeMu.Lock()
		n.closed = true
		if n.q != nil {
			close(n.q)
		}
		n.closeMu.Unlock()
	})
	finished := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier[V]) isClosed() bool {
	n.closeMu.RLock()
	defer n.closeMu.RUnlock()
	return n.closed
}

func (n *Notifier[V]) enqueue(ctx context.Context, it item[V]) error {
	// hold the read lock so Close cannot close the channel under a pending send
	n.closeMu.RLock()
	defer n.closeMu.RUnlock()
	if n.closed {
		return ErrClosed
	}
	select {
	case n.q <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier[V]) loop() {
	defer n.wg.Done()
	for it := range n.q {
		if it.done != nil {
			close(it.done)
			continue
		}
		n.deliver(context.Background(), it.ev)
	}
}

func (n *Notifier[V]) deliver(ctx context.Context, ev Event[V]) {
	n.mu.RLock()
	subs := make([]subscription[V], len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	for _, s := range subs {
		if lerr := call(ctx, s, ev); lerr != nil && n.onError != nil {
			n.onError(lerr)
		}
	}
}

func call[V any](ctx context.Context, s subscription[V], ev Event[V]) (lerr *ListenerError) {
	defer func() {
		if r := recover(); r != nil {
			lerr = &ListenerError{Key: ev.Key, Subscription: s.id, Panic: r, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := s.fn(ctx, ev); err != nil {
		return &ListenerError{Key: ev.Key, Subscription: s.id, Err: err}
	}
	return nil
}
