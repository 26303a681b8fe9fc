package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	LedgerURL    string `env:"LEDGER_URL" envDefault:"http://localhost:5000/api"`
	HTTPTimeoutS int    `env:"HTTP_TIMEOUT_S" envDefault:"10"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"warn"`
	AppEnv       string `env:"APP_ENV" envDefault:"production"`

	CredentialBackend   string `env:"CREDENTIAL_BACKEND" envDefault:"file"`
	CredentialFile      string `env:"CREDENTIAL_FILE" envDefault:"${HOME}/.config/bankcli/credentials.json" envExpand:"true"`
	CredentialNamespace string `env:"CREDENTIAL_NAMESPACE" envDefault:"default"`

	DatabaseURL        string `env:"DATABASE_URL"`
	DBMaxOpenConns     int    `env:"DB_MAX_OPEN_CONNS" envDefault:"2"`
	DBMaxIdleConns     int    `env:"DB_MAX_IDLE_CONNS" envDefault:"1"`
	DBConnMaxLifetimeS int    `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int    `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutS) * time.Second
}

func (c *Config) validate() error {
	switch c.CredentialBackend {
	case BackendFile, BackendRedis, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres credential backend")
		}
	default:
		return fmt.Errorf("unknown CREDENTIAL_BACKEND %q", c.CredentialBackend)
	}
	if c.HTTPTimeoutS <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_S must be positive")
	}
	return nil
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

type StubConfig struct {
	Port             int    `env:"PORT" envDefault:"5000"`
	JWTSecret        string `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenTTLS  int    `env:"ACCESS_TOKEN_TTL_S" envDefault:"3600"`
	RefreshTokenTTLS int    `env:"REFRESH_TOKEN_TTL_S" envDefault:"2592000"`
	MaxAmount        string `env:"MAX_AMOUNT" envDefault:"1000000"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv           string `env:"APP_ENV" envDefault:"production"`
}

func LoadStub() (*StubConfig, error) {
	cfg, err := env.ParseAs[StubConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadStub: %w", err)
	}
	return &cfg, nil
}
