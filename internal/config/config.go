package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration
	}
	DBEnabled bool
	Database  struct {
		ConnString   string
		MaxOpenConns int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	Workflow struct {
		MaxAttempts    int
		AppendAttempts int
	}
	List struct {
		DefaultLimit int
		MaxLimit     int
	}
	// SeedDepartments are created at startup when running on the in-memory store.
	SeedDepartments []string
}

func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.HTTP.Addr = getEnv("SERVER_ADDRESS", "0.0.0.0:8080")
	cfg.HTTP.ShutdownTimeout = parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs)

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.ConnString = os.Getenv("POSTGRES_CONN")
	cfg.Database.MaxOpenConns = parseInt("DB_MAX_OPEN_CONNS", 10, &errs)
	if cfg.DBEnabled && cfg.Database.ConnString == "" {
		errs = append(errs, errors.New("POSTGRES_CONN env variable is not set"))
	}

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = parseInt("REDIS_DB", 0, &errs)
	cfg.Redis.TTL = parseDuration("REF_CACHE_TTL", 5*time.Minute, &errs)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Workflow.MaxAttempts = parseInt("REVIEW_MAX_ATTEMPTS", 3, &errs)
	cfg.Workflow.AppendAttempts = parseInt("EVENT_APPEND_ATTEMPTS", 3, &errs)
	cfg.List.DefaultLimit = parseInt("LIST_LIMIT", 100, &errs)
	cfg.List.MaxLimit = parseInt("LIST_MAX_LIMIT", 500, &errs)

	for _, name := range strings.Split(getEnv("SEED_DEPARTMENTS", "Electrical,Water,Internet"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.SeedDepartments = append(cfg.SeedDepartments, name)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return i
}

func parseDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}
