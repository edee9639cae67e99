package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unkn0wn-root/sessioncache"
	"github.com/unkn0wn-root/sessioncache/internal/app"
	"github.com/unkn0wn-root/sessioncache/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("SESSIONCACHE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, flush, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		fatal(log, flush, "failed to initialize app", err)
	}

	go func() {
		if err := application.Run(); err != nil {
			fatal(log, flush, "http server failed", err)
		}
	}()

	log.Info("sessiond started", sessioncache.Fields{
		"addr":    cfg.HTTP.Addr,
		"backend": cfg.Store.Backend,
		"index":   cfg.Store.Index,
	})

	<-ctx.Done() // wait for Ctrl+C

	log.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		fatal(log, flush, "graceful shutdown failed", err)
	}

	log.Info("sessiond stopped cleanly", nil)
}

func fatal(log sessioncache.Logger, flush func(), msg string, err error) {
	log.Error(msg, sessioncache.Fields{"error": err.Error()})
	flush()
	os.Exit(1)
}
