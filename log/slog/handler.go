//go:build go1.21

package slog

import (
	"context"
	stdslog "log/slog"

	"github.com/unkn0wn-root/sessioncache"
)

var _ stdslog.Handler = (*Handler)(nil)

// Handler feeds slog records into a sessioncache.Logger, so slog-based code such as
// sloghooks writes through whatever backend the process configured.
// Group names become dotted key prefixes.
type Handler struct {
	l      sessioncache.Logger
	level  stdslog.Leveler
	fields sessioncache.Fields
	prefix string
}

// NewHandler forwards records at or above level (nil => Info) to l.
func NewHandler(l sessioncache.Logger, level stdslog.Leveler) *Handler {
	if level == nil {
		level = stdslog.LevelInfo
	}
	return &Handler{l: l, level: level}
}

func (h *Handler) Enabled(_ context.Context, lv stdslog.Level) bool {
	return lv >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r stdslog.Record) error {
	f := make(sessioncache.Fields, len(h.fields)+r.NumAttrs())
	for k, v := range h.fields {
		f[k] = v
	}
	r.Attrs(func(a stdslog.Attr) bool {
		addAttr(f, h.prefix, a)
		return true
	})

	switch {
	case r.Level >= stdslog.LevelError:
		h.l.Error(r.Message, f)
	case r.Level >= stdslog.LevelWarn:
		h.l.Warn(r.Message, f)
	case r.Level >= stdslog.LevelInfo:
		h.l.Info(r.Message, f)
	default:
		h.l.Debug(r.Message, f)
	}
	return nil
}

func (h *Handler) WithAttrs(as []stdslog.Attr) stdslog.Handler {
	nh := h.clone()
	for _, a := range as {
		addAttr(nh.fields, nh.prefix, a)
	}
	return nh
}

func (h *Handler) WithGroup(name string) stdslog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.prefix = h.prefix + name + "."
	return nh
}

func (h *Handler) clone() *Handler {
	f := make(sessioncache.Fields, len(h.fields))
	for k, v := range h.fields {
		f[k] = v
	}
	return &Handler{l: h.l, level: h.level, fields: f, prefix: h.prefix}
}

func addAttr(f sessioncache.Fields, prefix string, a stdslog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(stdslog.Attr{}) {
		return
	}
	if a.Value.Kind() == stdslog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			addAttr(f, p, ga)
		}
		return
	}
	f[prefix+a.Key] = a.Value.Any()
}
