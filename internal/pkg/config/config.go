package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Chat     ChatConfig
	Realtime RealtimeConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=launchpad"`
}

type RedisConfig struct {
	URL      string `env:"REDIS_URL"`
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=0"`
}

// ChatConfig holds the bounds of the messaging core.
type ChatConfig struct {
	MaxGroupMembers   int           `env:"CHAT_MAX_GROUP_MEMBERS,   default=500"`
	MaxGroupNameLen   int           `env:"CHAT_MAX_GROUP_NAME_LEN,  default=120"`
	MaxMessageBytes   int           `env:"CHAT_MAX_MESSAGE_BYTES,   default=8192"`
	DefaultPageSize   int           `env:"CHAT_DEFAULT_PAGE_SIZE,   default=50"`
	MaxPageSize       int           `env:"CHAT_MAX_PAGE_SIZE,       default=200"`
	RemovalConfirmTTL time.Duration `env:"CHAT_REMOVAL_CONFIRM_TTL, default=5m"`
}

type RealtimeConfig struct {
	// Backend is "redis" for cross-instance fan-out or "memory" for a single
	// process.
	Backend          string `env:"REALTIME_BACKEND,           default=redis"`
	Workers          int    `env:"REALTIME_WORKERS,           default=8"`
	SubscriberBuffer int    `env:"REALTIME_SUBSCRIBER_BUFFER, default=64"`
	ChannelPrefix    string `env:"REALTIME_CHANNEL_PREFIX,    default=chat:"`
}

// UsesRedisBus reports whether realtime fan-out goes through Redis pub/sub.
func (c *Config) UsesRedisBus() bool {
	return c.Realtime.Backend != "memory"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through the given lookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if cfg.Realtime.Backend != "redis" && cfg.Realtime.Backend != "memory" {
		return nil, fmt.Errorf("REALTIME_BACKEND must be redis or memory, got %q", cfg.Realtime.Backend)
	}
	return &cfg, nil
}
