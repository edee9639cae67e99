package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/sessioncache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery  uint64
	SweepDoneEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr  atomic.Uint64
	sweepDoneCtr atomic.Uint64
}

var _ sessioncache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Expired(storageKey, detectedBy string) {
	if h.l == nil {
		return
	}
	h.l.Debug("sessioncache.expired",
		"key", h.redact(storageKey),
		"detected_by", detectedBy)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("sessioncache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("sessioncache.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) IndexError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("sessioncache.index_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) ListenerFailed(err *sessioncache.ListenerError) {
	if h.l == nil {
		return
	}
	attrs := []any{
		"key", h.redact(err.Key),
		"subscription", err.Subscription,
		"err", err.Err,
	}
	if err.Panic != nil {
		attrs = append(attrs, "panic", err.Panic)
	}
	h.l.Error("sessioncache.listener_failed", attrs...)
}

func (h *Hooks) SweepDone(expired int, took time.Duration) {
	if h.l == nil || !sample(h.opts.SweepDoneEvery, &h.sweepDoneCtr) {
		return
	}
	h.l.Debug("sessioncache.sweep_done",
		"expired", expired,
		"took", took)
}
