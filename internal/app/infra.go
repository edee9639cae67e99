package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/sessioncache"
	"github.com/unkn0wn-root/sessioncache/index"
	"github.com/unkn0wn-root/sessioncache/internal/config"
	pr "github.com/unkn0wn-root/sessioncache/provider"
	bcprov "github.com/unkn0wn-root/sessioncache/provider/bigcache"
	boltprov "github.com/unkn0wn-root/sessioncache/provider/bolt"
	redisprov "github.com/unkn0wn-root/sessioncache/provider/redis"
	ristprov "github.com/unkn0wn-root/sessioncache/provider/ristretto"
)

const boltPurgeInterval = time.Minute

// Infra is the backing service shared by every store of the process.
type Infra struct {
	Provider pr.Provider
	Redis    goredis.UniversalClient // nil unless the backend or the index needs it

	ownRedis bool
	stop     chan struct{}
	done     chan struct{}
}

func setupInfra(ctx context.Context, cfg config.Config, log sessioncache.Logger) (*Infra, error) {
	inf := &Infra{}

	var err error
	switch cfg.Store.Backend {
	case "redis":
		var p *redisprov.Redis
		p, err = redisprov.Dial(ctx, redisprov.DialConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err == nil {
			inf.Provider, inf.Redis = p, p.Client()
		}
	case "ristretto":
		inf.Provider, err = ristprov.New(ristprov.DefaultConfig())
	case "bigcache":
		life := max(cfg.Session.TTL, cfg.SessionsCache.TTL) + cfg.Store.ExpiryGrace
		inf.Provider, err = bcprov.New(ctx, bcprov.Config{LifeWindow: life, CleanWindow: time.Minute})
	case "bolt":
		var p *boltprov.Provider
		p, err = boltprov.Open(boltprov.Config{Path: cfg.Bolt.Path})
		if err == nil {
			inf.Provider = p
			inf.startPurge(p, log)
		}
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("store backend %s: %w", cfg.Store.Backend, err)
	}
	log.Info("store backend ready", sessioncache.Fields{"backend": cfg.Store.Backend})

	if cfg.Store.Index == "redis" && inf.Redis == nil {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			_ = inf.Close(ctx)
			return nil, fmt.Errorf("redis index: %w", err)
		}
		inf.Redis, inf.ownRedis = rdb, true
		log.Info("redis ready", sessioncache.Fields{"addr": cfg.Redis.Addr})
	}
	return inf, nil
}

// Index returns the expiry index for namespace ns.
func (inf *Infra) Index(kind, ns string) index.Index {
	if kind == "redis" && inf.Redis != nil {
		return index.NewRedisIndex(inf.Redis, ns)
	}
	return index.NewLocalIndex()
}

// startPurge drops bolt records past their physical deadline; bbolt has no TTL of its own.
func (inf *Infra) startPurge(p *boltprov.Provider, log sessioncache.Logger) {
	inf.stop = make(chan struct{})
	inf.done = make(chan struct{})
	go func() {
		defer close(inf.done)
		t := time.NewTicker(boltPurgeInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				n, err := p.Purge(context.Background())
				if err != nil {
					log.Warn("bolt purge failed", sessioncache.Fields{"err": err})
					continue
				}
				if n > 0 {
					log.Debug("bolt purge", sessioncache.Fields{"removed": n})
				}
			case <-inf.stop:
				return
			}
		}
	}()
}

func (inf *Infra) Close(ctx context.Context) error {
	if inf.stop != nil {
		close(inf.stop)
		<-inf.done
		inf.stop = nil
	}
	var errs []error
	if inf.ownRedis {
		errs = append(errs, inf.Redis.Close())
	}
	if inf.Provider != nil {
		errs = append(errs, inf.Provider.Close(ctx))
	}
	return errors.Join(errs...)
}
