package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP          HTTP          `yaml:"http"`
	Log           Log           `yaml:"log"`
	Store         Store         `yaml:"store"`
	Redis         Redis         `yaml:"redis"`
	Bolt          Bolt          `yaml:"bolt"`
	Session       Session       `yaml:"session"`
	SessionsCache SessionsCache `yaml:"sessionsCache"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Backend string `yaml:"backend"` // zap | logrus | zerolog | slog
	Level   string `yaml:"level"`   // debug | info | warn | error
}

type Store struct {
	Backend       string        `yaml:"backend"` // redis | ristretto | bigcache | bolt
	Codec         string        `yaml:"codec"`   // json | msgpack | cbor | protobuf
	Index         string        `yaml:"index"`   // local | redis
	SweepInterval time.Duration `yaml:"sweepInterval"`
	SweepBatch    int           `yaml:"sweepBatch"`
	OpTimeout     time.Duration `yaml:"opTimeout"`
	ExpiryGrace   time.Duration `yaml:"expiryGrace"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"` // prepended to every record key of the redis backend
}

type Bolt struct {
	Path string `yaml:"path"`
}

type Session struct {
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

type SessionsCache struct {
	Name string        `yaml:"name"`
	TTL  time.Duration `yaml:"ttl"`
}

// Default is the configuration used when nothing else is set.
func Default() Config {
	return Config{
		HTTP: HTTP{Addr: ":8080"},
		Log:  Log{Backend: "zap", Level: "info"},
		Store: Store{
			Backend:       "redis",
			Codec:         "json",
			Index:         "redis",
			SweepInterval: time.Second,
			SweepBatch:    512,
			OpTimeout:     2 * time.Second,
			ExpiryGrace:   5 * time.Minute,
		},
		Redis:         Redis{Addr: "localhost:6379", Prefix: "demo:"},
		Bolt:          Bolt{Path: "sessions.db"},
		Session:       Session{Namespace: "session", TTL: 60 * time.Second},
		SessionsCache: SessionsCache{Name: "sessions", TTL: 180 * time.Second},
	}
}

// Load applies, in order: defaults, the YAML file at path (skipped when path is
// empty), environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", name, err))
				return
			}
			*dst = n
		}
	}

	str("SESSIONCACHE_HTTP_ADDR", &cfg.HTTP.Addr)
	str("SESSIONCACHE_LOG_BACKEND", &cfg.Log.Backend)
	str("SESSIONCACHE_LOG_LEVEL", &cfg.Log.Level)
	str("SESSIONCACHE_STORE_BACKEND", &cfg.Store.Backend)
	str("SESSIONCACHE_STORE_CODEC", &cfg.Store.Codec)
	str("SESSIONCACHE_STORE_INDEX", &cfg.Store.Index)
	dur("SESSIONCACHE_STORE_SWEEP_INTERVAL", &cfg.Store.SweepInterval)
	num("SESSIONCACHE_STORE_SWEEP_BATCH", &cfg.Store.SweepBatch)
	dur("SESSIONCACHE_STORE_OP_TIMEOUT", &cfg.Store.OpTimeout)
	dur("SESSIONCACHE_STORE_EXPIRY_GRACE", &cfg.Store.ExpiryGrace)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	num("SESSIONCACHE_REDIS_DB", &cfg.Redis.DB)
	if v, ok := os.LookupEnv("SESSIONCACHE_REDIS_PREFIX"); ok {
		cfg.Redis.Prefix = v // "" is a valid prefix
	}
	str("SESSIONCACHE_BOLT_PATH", &cfg.Bolt.Path)
	str("SESSIONCACHE_SESSION_NAMESPACE", &cfg.Session.Namespace)
	dur("SESSIONCACHE_SESSION_TTL", &cfg.Session.TTL)
	str("SESSIONCACHE_SESSIONS_CACHE_NAME", &cfg.SessionsCache.Name)
	dur("SESSIONCACHE_SESSIONS_CACHE_TTL", &cfg.SessionsCache.TTL)

	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	oneOf := func(field, v string, allowed ...string) {
		for _, a := range allowed {
			if v == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("config: %s=%q, want one of %v", field, v, allowed))
	}
	positive := func(field string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("config: %s must be > 0, got %s", field, d))
		}
	}

	oneOf("log.backend", c.Log.Backend, "zap", "logrus", "zerolog", "slog")
	oneOf("log.level", c.Log.Level, "debug", "info", "warn", "error")
	oneOf("store.backend", c.Store.Backend, "redis", "ristretto", "bigcache", "bolt")
	oneOf("store.codec", c.Store.Codec, "json", "msgpack", "cbor", "protobuf")
	oneOf("store.index", c.Store.Index, "local", "redis")
	positive("store.sweepInterval", c.Store.SweepInterval)
	positive("store.expiryGrace", c.Store.ExpiryGrace)
	positive("session.ttl", c.Session.TTL)
	positive("sessionsCache.ttl", c.SessionsCache.TTL)
	if c.Store.SweepBatch < 0 {
		errs = append(errs, fmt.Errorf("config: store.sweepBatch must be >= 0"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, fmt.Errorf("config: http.addr is required"))
	}
	if c.Session.Namespace == "" || c.SessionsCache.Name == "" {
		errs = append(errs, fmt.Errorf("config: session.namespace and sessionsCache.name are required"))
	}
	if (c.Store.Backend == "redis" || c.Store.Index == "redis") && c.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("config: redis.addr is required for the redis backend or index"))
	}
	if c.Store.Backend == "bolt" && c.Bolt.Path == "" {
		errs = append(errs, fmt.Errorf("config: bolt.path is required for the bolt backend"))
	}
	return errors.Join(errs...)
}
