// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port            int
	TablesPath      string
	StorageBackend  string
	DatabaseURL     string
	RedisAddr       string
	JWTSecret       string
	LogLevel        string
	LogFormat       string
	IdleTimeout     time.Duration
	RestoreGrace    time.Duration
	MaxMessageSize  int64
	RateLimit       int
	AwayTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Default is the configuration used for anything not set in the environment.
func Default() Config {
	return Config{
		Port:            8080,
		TablesPath:      "./tables",
		StorageBackend:  "file",
		RedisAddr:       "localhost:6379",
		LogLevel:        "info",
		LogFormat:       "text",
		IdleTimeout:     30 * time.Minute,
		RestoreGrace:    20 * time.Second,
		MaxMessageSize:  8192,
		RateLimit:       20,
		AwayTimeout:     5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load overlays environment variables on Default. A malformed value is an
// error rather than a silent fallback.
func Load() (Config, error) {
	cfg := Default()
	var err error

	if cfg.Port, err = intVar("PORT", cfg.Port); err != nil {
		return cfg, err
	}
	cfg.TablesPath = stringVar("TABLES_PATH", cfg.TablesPath)
	cfg.StorageBackend = stringVar("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.DatabaseURL = stringVar("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = stringVar("REDIS_ADDR", cfg.RedisAddr)
	cfg.JWTSecret = stringVar("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = stringVar("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = stringVar("LOG_FORMAT", cfg.LogFormat)

	if cfg.IdleTimeout, err = durationVar("IDLE_TIMEOUT", cfg.IdleTimeout); err != nil {
		return cfg, err
	}
	if cfg.RestoreGrace, err = durationVar("RESTORE_GRACE", cfg.RestoreGrace); err != nil {
		return cfg, err
	}
	size, err := intVar("MAX_MESSAGE_SIZE", int(cfg.MaxMessageSize))
	if err != nil {
		return cfg, err
	}
	cfg.MaxMessageSize = int64(size)
	if cfg.RateLimit, err = intVar("RATE_LIMIT", cfg.RateLimit); err != nil {
		return cfg, err
	}
	if cfg.AwayTimeout, err = durationVar("AWAY_TIMEOUT", cfg.AwayTimeout); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = durationVar("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return cfg, err
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET must be set")
	}
	return cfg, nil
}

func stringVar(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func intVar(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func durationVar(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	logger.SetLevel(level)

	switch c.LogFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return logger, nil
}
