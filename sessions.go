package sessioncache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/sessioncache/keycodec"
	"github.com/unkn0wn-root/sessioncache/notify"
)

// Session is the cached record. It is only ever replaced as a whole.
type Session struct {
	ID       string `json:"id" msgpack:"id" cbor:"id"`
	Username string `json:"username" msgpack:"username" cbor:"username"`
	// ExpiresAt is the unix-ms deadline of the record Find returned. Save ignores it.
	ExpiresAt int64 `json:"expiresAt,omitempty" msgpack:"expiresAt,omitempty" cbor:"expiresAt,omitempty"`
}

// Deadline is when a copy of s stops being valid. Zero means unknown.
func (s Session) Deadline() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.ExpiresAt)
}

// Sessions stores Session values under "<namespace>:<id>" with one fixed TTL.
type Sessions struct {
	store *Store[Session]
	ns    string
	ttl   time.Duration
}

func NewSessions(store *Store[Session], opts SessionOptions) *Sessions {
	return &Sessions{
		store: store,
		ns:    coalesce(opts.Namespace, DefaultSessionNamespace),
		ttl:   coalesce(opts.TTL, DefaultSessionTTL),
	}
}

// Key is the store key for id.
func (s *Sessions) Key(id string) string { return keycodec.Entity(s.ns, id) }

func (s *Sessions) Namespace() string { return s.ns }

func (s *Sessions) TTL() time.Duration { return s.ttl }

// Save replaces whatever is stored for id and restarts its TTL.
func (s *Sessions) Save(ctx context.Context, id, username string) error {
	if id == "" {
		return invalidArg("empty session id")
	}
	return s.store.Put(ctx, s.Key(id), Session{ID: id, Username: username}, s.ttl)
}

// Find returns the live session for id with ExpiresAt set to its deadline.
func (s *Sessions) Find(ctx context.Context, id string) (Session, bool, error) {
	if id == "" {
		return Session{}, false, invalidArg("empty session id")
	}
	sess, deadline, ok, err := s.store.Lookup(ctx, s.Key(id))
	if err != nil || !ok {
		return Session{}, ok, err
	}
	sess.ExpiresAt = deadline.UnixMilli()
	return sess, true, nil
}

// Evict removes id. It does not count as an expiry.
func (s *Sessions) Evict(ctx context.Context, id string) error {
	if id == "" {
		return invalidArg("empty session id")
	}
	return s.store.Delete(ctx, s.Key(id))
}

// OnExpire calls fn for every expired session of this namespace. When the backing
// service lost the payload, the Session carries only the id recovered from the key.
func (s *Sessions) OnExpire(fn func(ctx context.Context, sess Session) error) notify.Subscription {
	return s.store.OnExpire(func(ctx context.Context, ev notify.Event[Session]) error {
		id, ok := keycodec.EntityID(s.ns, ev.Key)
		if !ok {
			return nil
		}
		sess := ev.Value
		if ev.ValueLost || sess.ID == "" {
			sess.ID = id
		}
		return fn(ctx, sess)
	})
}

// LogExpired registers the default listener that logs every expired session.
func (s *Sessions) LogExpired(log Logger) notify.Subscription {
	return s.OnExpire(func(_ context.Context, sess Session) error {
		log.Info(fmt.Sprintf("session expired. id:%s, username:%s", sess.ID, sess.Username),
			Fields{"id": sess.ID, "username": sess.Username})
		return nil
	})
}
