package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	bbolt "go.etcd.io/bbolt"

	pr "github.com/unkn0wn-root/sessioncache/provider"
)

// Provider is a file-backed store. Each record is laid out as
// deadline(u64 be, unix ms; 0 = none) || value, and Get hides records past their
// physical deadline. Expired records are dropped when read or by Purge.
type Provider struct {
	db     *bbolt.DB
	bucket []byte
	now    func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	Path    string
	Bucket  string        // default "entries"
	Timeout time.Duration // file lock wait; default 1s
}

func Open(cfg Config) (*Provider, error) {
	if cfg.Path == "" {
		return nil, errors.New("bolt: path is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	bucket := []byte("entries")
	if cfg.Bucket != "" {
		bucket = []byte(cfg.Bucket)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Provider{db: db, bucket: bucket, now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	var found, expired bool
	err := p.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(p.bucket).Get([]byte(key))
		if len(v) < 8 {
			return nil
		}
		if dl := int64(binary.BigEndian.Uint64(v[:8])); dl > 0 && p.now().UnixMilli() >= dl {
			expired = true
			return nil
		}
		// bbolt memory is only valid inside the transaction
		out = append([]byte{}, v[8:]...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if expired {
		return nil, false, p.Del(context.Background(), key)
	}
	if !found {
		return nil, false, nil
	}
	return out, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var dl int64
	if ttl > 0 {
		dl = p.now().Add(ttl).UnixMilli()
	}
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(dl))
	copy(buf[8:], value)

	err := p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(p.bucket).Put([]byte(key), buf)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(p.bucket).Delete([]byte(key))
	})
}

// Purge removes every record past its physical deadline and reports how many went.
func (p *Provider) Purge(_ context.Context) (int, error) {
	nowMs := p.now().UnixMilli()
	removed := 0
	err := p.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(p.bucket)
		var dead [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if len(v) < 8 {
				dead = append(dead, append([]byte(nil), k...))
				return nil
			}
			if dl := int64(binary.BigEndian.Uint64(v[:8])); dl > 0 && nowMs >= dl {
				dead = append(dead, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range dead {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(dead)
		return nil
	})
	return removed, err
}

func (p *Provider) Close(_ context.Context) error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
