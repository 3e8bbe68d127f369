package config

import (
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	CacheRedis  = "redis"
	CacheMemory = "memory"

	BrokerNone  = "none"
	BrokerRedis = "redis"
)

type Config struct {
	ServerAddr      string        `env:"DRAWSYNC_ADDR" envDefault:"localhost:8000"`
	DatabaseDSN     string        `env:"DRAWSYNC_DATABASE_DSN" envDefault:"host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"`
	SigningSecret   string        `env:"DRAWSYNC_SIGNING_KEY"`
	AllowedOrigins  []string      `env:"DRAWSYNC_ALLOWED_ORIGINS" envSeparator:","`
	Store           string        `env:"DRAWSYNC_STORE" envDefault:"postgres"`
	Cache           string        `env:"DRAWSYNC_CACHE" envDefault:"memory"`
	Broker          string        `env:"DRAWSYNC_BROKER" envDefault:"none"`
	RedisAddr       string        `env:"DRAWSYNC_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"DRAWSYNC_REDIS_PASSWORD"`
	RedisDB         int           `env:"DRAWSYNC_REDIS_DB"`
	RoomStateTTL    time.Duration `env:"DRAWSYNC_ROOM_STATE_TTL" envDefault:"24h"`
	TokenExp        time.Duration `env:"DRAWSYNC_TOKEN_EXP" envDefault:"24h"`
	LogLevel        string        `env:"DRAWSYNC_LOG_LEVEL" envDefault:"info"`
	LogDev          bool          `env:"DRAWSYNC_LOG_DEV"`
	SweepSchedule   string        `env:"DRAWSYNC_SWEEP_SCHEDULE" envDefault:"@every 10m"`
	FinishedRoomTTL time.Duration `env:"DRAWSYNC_FINISHED_ROOM_TTL" envDefault:"1h"`

	// SigningKey is SigningSecret decoded by Validate.
	SigningKey []byte `env:"-"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

type stringSliceFlag struct {
	values *[]string
	set    bool
}

func (s *stringSliceFlag) String() string {
	if s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ",")
}

// Set replaces the values from the environment on first use and appends
// afterwards, so the flag can be repeated.
func (s *stringSliceFlag) Set(value string) error {
	if !s.set {
		*s.values = nil
		s.set = true
	}
	*s.values = append(*s.values, strings.Split(value, ",")...)
	return nil
}

// RegisterFlags binds command-line flags to c. Values already loaded from the
// environment become the flag defaults, so flags win when both are given.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ServerAddr, "addr", c.ServerAddr, "server address")
	fs.StringVar(&c.DatabaseDSN, "dsn", c.DatabaseDSN, "database connection string")
	fs.StringVar(&c.SigningSecret, "signing-key", c.SigningSecret, "base64 encoded signing key")
	fs.Var(&stringSliceFlag{values: &c.AllowedOrigins}, "allowed-origins", "comma-separated list of allowed origins for CORS")
	fs.StringVar(&c.Store, "store", c.Store, "aggregate store: postgres or memory")
	fs.StringVar(&c.Cache, "cache", c.Cache, "room state cache: redis or memory")
	fs.StringVar(&c.Broker, "broker", c.Broker, "event broker: redis or none")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "redis address")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.BoolVar(&c.LogDev, "log-dev", c.LogDev, "human readable logs")
	fs.StringVar(&c.SweepSchedule, "sweep-schedule", c.SweepSchedule, "cron spec of the finished room sweep")
	fs.DurationVar(&c.FinishedRoomTTL, "finished-room-ttl", c.FinishedRoomTTL, "how long finished rooms are kept")
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, errors.New("signing secret cannot be empty")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func (c *Config) usesRedis() bool {
	return c.Cache == CacheRedis || c.Broker == BrokerRedis
}

// Validate checks the configuration and decodes the signing key.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if !slices.Contains([]string{StorePostgres, StoreMemory}, c.Store) {
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Store == StorePostgres && c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if !slices.Contains([]string{CacheRedis, CacheMemory}, c.Cache) {
		return fmt.Errorf("unknown cache %q", c.Cache)
	}
	if !slices.Contains([]string{BrokerRedis, BrokerNone}, c.Broker) {
		return fmt.Errorf("unknown broker %q", c.Broker)
	}
	if c.usesRedis() && c.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}
	if c.FinishedRoomTTL <= 0 {
		return fmt.Errorf("finished room ttl must be positive")
	}

	key, err := decodeSigningSecret(c.SigningSecret)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.SigningKey = key
	return nil
}
