package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Storage backends for the persisted session.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	BridgePort string `env:"BRIDGE_PORT, default=8090"`
	// BridgeOrigins are the websocket origin patterns the render layer may use.
	BridgeOrigins []string `env:"BRIDGE_ORIGINS, default=localhost:*,127.0.0.1:*"`

	API       APIConfig
	Storage   StorageConfig
	DevServer DevServerConfig
}

type APIConfig struct {
	BaseURL         string        `env:"API_BASE_URL,     default=http://localhost:8000/api/v1"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,  default=30s"`
	TailorTimeout   time.Duration `env:"TAILOR_TIMEOUT,   default=2m"`
	GenerateTimeout time.Duration `env:"GENERATE_TIMEOUT, default=60s"`
	ParseTimeout    time.Duration `env:"PARSE_TIMEOUT,    default=60s"`
}

type StorageConfig struct {
	Backend    string `env:"STORAGE_BACKEND, default=sqlite"`
	SQLitePath string `env:"SQLITE_PATH,     default=.resumeforge/client.db"`

	RedisAddr   string `env:"REDIS_ADDR,   default=localhost:6379"`
	RedisDB     int    `env:"REDIS_DB,     default=0"`
	RedisPrefix string `env:"REDIS_PREFIX, default=resumeforge:"`

	MongoURI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DB,  default=resumeforge"`
}

type DevServerConfig struct {
	Port      string        `env:"DEVSERVER_PORT,       default=8000"`
	JWTSecret string        `env:"DEVSERVER_JWT_SECRET, default=dev-secret"`
	TokenTTL  time.Duration `env:"DEVSERVER_TOKEN_TTL,  default=24h"`
}

// Load reads an optional .env file, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom processes and validates configuration from lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendRedis, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: API_BASE_URL is empty")
	}
	timeouts := map[string]time.Duration{
		"REQUEST_TIMEOUT":     c.API.RequestTimeout,
		"TAILOR_TIMEOUT":      c.API.TailorTimeout,
		"GENERATE_TIMEOUT":    c.API.GenerateTimeout,
		"PARSE_TIMEOUT":       c.API.ParseTimeout,
		"DEVSERVER_TOKEN_TTL": c.DevServer.TokenTTL,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, d)
		}
	}
	return nil
}
