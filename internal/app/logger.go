package app

import (
	"fmt"
	stdslog "log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/sessioncache"
	"github.com/unkn0wn-root/sessioncache/internal/config"
	logruslog "github.com/unkn0wn-root/sessioncache/log/logrus"
	sloglog "github.com/unkn0wn-root/sessioncache/log/slog"
	zaplog "github.com/unkn0wn-root/sessioncache/log/zap"
	zerologlog "github.com/unkn0wn-root/sessioncache/log/zerolog"
)

// NewLogger builds the configured backend. The returned flush func must run on exit.
func NewLogger(cfg config.Log) (sessioncache.Logger, func(), error) {
	level := strings.ToLower(cfg.Level)
	switch cfg.Backend {
	case "zap", "":
		var zl zapcore.Level
		if err := zl.UnmarshalText([]byte(level)); err != nil {
			return nil, nil, fmt.Errorf("log: %w", err)
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zl)
		l, err := zc.Build()
		if err != nil {
			return nil, nil, fmt.Errorf("log: %w", err)
		}
		return zaplog.New(l), func() { _ = l.Sync() }, nil

	case "logrus":
		lv, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("log: %w", err)
		}
		l := logrus.New()
		l.SetOutput(os.Stdout)
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(lv)
		return logruslog.New(l), func() {}, nil

	case "zerolog":
		lv, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("log: %w", err)
		}
		l := zerolog.New(os.Stdout).Level(lv).With().Timestamp().Logger()
		return zerologlog.New(l), func() {}, nil

	case "slog":
		var lv stdslog.Level
		if err := lv.UnmarshalText([]byte(level)); err != nil {
			return nil, nil, fmt.Errorf("log: %w", err)
		}
		l := stdslog.New(stdslog.NewJSONHandler(os.Stdout, &stdslog.HandlerOptions{Level: lv}))
		return sloglog.New(l), func() {}, nil
	}
	return nil, nil, fmt.Errorf("log: unknown backend %q", cfg.Backend)
}
