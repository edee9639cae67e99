package app

import (
	"context"
	"errors"
	"fmt"
	stdslog "log/slog"
	"net/http"

	"github.com/unkn0wn-root/sessioncache"
	"github.com/unkn0wn-root/sessioncache/codec"
	asynchook "github.com/unkn0wn-root/sessioncache/hooks/async"
	"github.com/unkn0wn-root/sessioncache/internal/config"
	"github.com/unkn0wn-root/sessioncache/internal/server"
	sloglog "github.com/unkn0wn-root/sessioncache/log/slog"
	"github.com/unkn0wn-root/sessioncache/sloghooks"
)

const maxSessionPayload = 64 << 10

type App struct {
	httpServer *http.Server
	srv        *server.Server
	infra      *Infra
	hooks      *asynchook.Hooks
	stores     []interface{ Close(context.Context) error }
	log        sessioncache.Logger
}

// New wires backing service, stores, listeners and HTTP. Nothing is served until Run.
func New(ctx context.Context, cfg config.Config, log sessioncache.Logger) (*App, error) {
	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{infra: infra, log: log}

	// hook output goes through the configured backend and honors its level
	var level stdslog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = stdslog.LevelInfo
	}
	hookLog := stdslog.New(sloglog.NewHandler(log, level))
	a.hooks = asynchook.New(sloghooks.New(hookLog, sloghooks.Options{
		SelfHealEvery:  10,
		SweepDoneEvery: 60,
	}), 1, 1024)

	inner, err := sessionCodec(cfg.Store.Codec)
	if err != nil {
		_ = a.closeBackends(ctx)
		return nil, err
	}
	// sessions are tiny; anything larger in a shared backend is not ours
	sessCodec := codec.Limit[sessioncache.Session]{Inner: inner, MaxDecode: maxSessionPayload}
	newStore := func(ns string) (*sessioncache.Store[sessioncache.Session], error) {
		st, err := sessioncache.NewStore[sessioncache.Session](sessioncache.StoreOptions[sessioncache.Session]{
			Provider:      infra.Provider,
			Codec:         sessCodec,
			Index:         infra.Index(cfg.Store.Index, ns),
			Logger:        log,
			Hooks:         a.hooks,
			ExpiryGrace:   cfg.Store.ExpiryGrace,
			SweepInterval: cfg.Store.SweepInterval,
			SweepBatch:    cfg.Store.SweepBatch,
			OpTimeout:     cfg.Store.OpTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", ns, err)
		}
		a.stores = append(a.stores, st)
		return st, nil
	}

	sessStore, err := newStore(cfg.Session.Namespace)
	if err != nil {
		_ = a.closeBackends(ctx)
		return nil, err
	}
	facadeStore, err := newStore(cfg.SessionsCache.Name)
	if err != nil {
		_ = a.closeBackends(ctx)
		return nil, err
	}

	sessions := sessioncache.NewSessions(sessStore, sessioncache.SessionOptions{
		Namespace: cfg.Session.Namespace,
		TTL:       cfg.Session.TTL,
	})
	sessions.LogExpired(log)

	facade := sessioncache.NewFacade(facadeStore, sessioncache.FacadeOptions{
		Name: cfg.SessionsCache.Name,
		TTL:  cfg.SessionsCache.TTL,
	})

	a.srv = server.New(server.Options{Sessions: sessions, Facade: facade, Logger: log})
	a.httpServer = &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: a.srv.Routes(),
	}
	return a, nil
}

// Run serves HTTP until Shutdown.
func (a *App) Run() error {
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops HTTP first, then the stores (delivering pending expiry events), then
// the backing service.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.httpServer != nil {
		errs = append(errs, a.httpServer.Shutdown(ctx))
	}
	if a.srv != nil {
		a.srv.Close()
	}
	errs = append(errs, a.closeBackends(ctx))
	return errors.Join(errs...)
}

func (a *App) closeBackends(ctx context.Context) error {
	var errs []error
	for _, st := range a.stores {
		errs = append(errs, st.Close(ctx))
	}
	a.stores = nil
	if a.hooks != nil {
		a.hooks.Close()
	}
	errs = append(errs, a.infra.Close(ctx))
	return errors.Join(errs...)
}
