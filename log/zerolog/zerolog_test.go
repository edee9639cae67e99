package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/unkn0wn-root/sessioncache"
)

func TestWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("hidden", nil)
	l.Info("session expired. id:abc, username:user-abc", sessioncache.Fields{"id": "abc"})
	l.Error("sweep failed", sessioncache.Fields{"err": errors.New("boom"), "expired": 3})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var info map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info["level"] != "info" || info["id"] != "abc" || info["component"] != "sessioncache" {
		t.Fatalf("unexpected info line: %v", info)
	}

	var errLine map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &errLine); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if errLine["level"] != "error" || errLine["err"] != "boom" || errLine["expired"] != float64(3) {
		t.Fatalf("unexpected error line: %v", errLine)
	}
}
