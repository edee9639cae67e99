package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/sessioncache"
	"github.com/unkn0wn-root/sessioncache/internal/config"
)

func TestNewLogger(t *testing.T) {
	for _, backend := range []string{"zap", "logrus", "zerolog", "slog"} {
		t.Run(backend, func(t *testing.T) {
			log, flush, err := NewLogger(config.Log{Backend: backend, Level: "warn"})
			require.NoError(t, err)
			require.NotNil(t, log)
			log.Debug("not shown", nil)
			flush()
		})
	}

	_, _, err := NewLogger(config.Log{Backend: "printf", Level: "info"})
	assert.Error(t, err)
	_, _, err = NewLogger(config.Log{Backend: "zap", Level: "loud"})
	assert.Error(t, err)
}

func roundTrip(t *testing.T, cfg config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	a, err := New(ctx, cfg, sessioncache.NopLogger{})
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Shutdown(ctx)) }()

	h := a.httpServer.Handler
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"abc","username":"user-abc"}`, w.Body.String())
}

func TestAppRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	cfg.Store.Codec = "msgpack"
	roundTrip(t, cfg)
	assert.True(t, mr.Exists("demo:session:abc"))
	assert.True(t, mr.Exists("demo:sessions::SessionService_find_abc"))
}

func TestAppRedisPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Prefix = "auth:"
	roundTrip(t, cfg)
	assert.True(t, mr.Exists("auth:session:abc"))
	assert.False(t, mr.Exists("demo:session:abc"))
}

func TestAppRistrettoLocalIndex(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "ristretto"
	cfg.Store.Index = "local"
	cfg.Store.Codec = "cbor"
	roundTrip(t, cfg)
}

func TestAppBigcacheRedisIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Backend = "bigcache"
	cfg.Redis.Addr = mr.Addr()
	roundTrip(t, cfg)
	assert.True(t, mr.Exists("expiry:session"))
}

func TestAppProtobufCodec(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "ristretto"
	cfg.Store.Index = "local"
	cfg.Store.Codec = "protobuf"
	roundTrip(t, cfg)
}

func TestSessionProtobufCodec(t *testing.T) {
	c, err := sessionCodec("protobuf")
	require.NoError(t, err)

	in := sessioncache.Session{ID: "abc", Username: "user-abc", ExpiresAt: 1_700_000_060_123}
	b, err := c.Encode(in)
	require.NoError(t, err)
	out, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestAppBolt(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "bolt"
	cfg.Store.Index = "local"
	cfg.Bolt.Path = filepath.Join(t.TempDir(), "sessions.db")
	roundTrip(t, cfg)
}

func TestAppRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Redis.Addr = addr
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := New(ctx, cfg, sessioncache.NopLogger{})
	assert.Error(t, err)
}
