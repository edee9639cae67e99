package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/sessioncache"
)

func TestAttrsAreSortedAndLeveled(t *testing.T) {
	var buf bytes.Buffer
	l := New(stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})))

	l.Debug("hidden", nil)
	l.Warn("delete of expired entry failed", sessioncache.Fields{"key": "session:1", "err": "timeout"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line not filtered: %s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "component=sessioncache") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Index(out, "err=timeout") > strings.Index(out, "key=session:1") {
		t.Fatalf("attrs not sorted: %s", out)
	}
}
