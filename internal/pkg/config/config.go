package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port          string        `env:"PORT,            default=8080"`
	Env           string        `env:"ENV,             default=development"`
	JWTSecret     string        `env:"JWT_SECRET,      required"`
	TokenTTL      time.Duration `env:"TOKEN_TTL,       default=1h"`
	BcryptCost    int           `env:"BCRYPT_COST,     default=10"`
	LogLevel      string        `env:"LOG_LEVEL,       default=info"`
	AccessLogPath string        `env:"ACCESS_LOG_PATH"`
	RepairWorkers int           `env:"REPAIR_WORKERS,  default=4"`

	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,            default=note-app"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE, default=50"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
	// PoolSize of zero sizes the pool from the rate-limit budgets.
	PoolSize int `env:"REDIS_POOL_SIZE, default=0"`
}

// RateLimitConfig sets per-second request budgets. Backend "redis" shares
// the budget across replicas; "memory" keeps it per process.
type RateLimitConfig struct {
	Backend       string  `env:"RATE_LIMIT_BACKEND,       default=memory"`
	Authenticated float64 `env:"RATE_LIMIT_AUTHENTICATED, default=10"`
	Anonymous     float64 `env:"RATE_LIMIT_ANONYMOUS,     default=5"`
}

type CORSConfig struct {
	AllowOrigins []string `env:"CORS_ALLOW_ORIGINS, default=*"`
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.RateLimit.Backend == "redis"
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
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}

	switch cfg.RateLimit.Backend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("config: unknown RATE_LIMIT_BACKEND %q", cfg.RateLimit.Backend)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("config: TOKEN_TTL must be positive")
	}
	return &cfg, nil
}
