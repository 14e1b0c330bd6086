package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// DevJWTSecret signs tokens in development when JWT_SECRET is unset.
const DevJWTSecret = "securetransact-dev-secret"

type Config struct {
	Port      string        `env:"PORT,      default=5000"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=168h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// StrictTransitions rejects status changes outside the forward lifecycle.
	StrictTransitions bool `env:"STRICT_TRANSITIONS, default=false"`
	ChatWorkers       int  `env:"CHAT_WORKERS,       default=8"`

	Storage StorageConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Minio   MinioConfig
}

type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER, default=memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH,    default=escrow.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=securetransact"`
}

// RedisConfig is optional; an empty address disables idempotency replay and
// auth rate limiting.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,         default=0"`
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT,  default=20"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW, default=1m"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL,  default=24h"`
}

// MinioConfig is optional; an empty endpoint disables image uploads.
type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET,     default=transaction-images"`
	UseSSL    bool   `env:"MINIO_USE_SSL,    default=false"`
	PublicURL string `env:"MINIO_PUBLIC_URL"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads a .env file when present, then the environment. Variables that
// are already set win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("config: JWT_SECRET is required outside development")
		}
		c.JWTSecret = DevJWTSecret
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverMongo:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}
