package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/postfeed/pkg/logging"
	"github.com/Sternrassler/postfeed/pkg/pagination"
	"github.com/Sternrassler/postfeed/pkg/store"
	"github.com/redis/go-redis/v9"
)

// config is the resolved job configuration: environment first, flags on top.
type config struct {
	BaseURL   string
	PageSize  int
	Timeout   time.Duration
	UserAgent string

	LogLevel  string
	LogPretty bool

	// Publishing is enabled when RedisURL is set.
	RedisURL    string
	RedisPrefix string
	FeedTTL     time.Duration

	MetricsFile string

	Escape     bool
	HeaderFile string
	FooterFile string
	OutputFile string
}

// configFromEnv reads the environment. Malformed values are reported
// together so the user can fix them in one pass.
func configFromEnv() (config, error) {
	cfg := config{
		BaseURL:     os.Getenv("BASE_URL"),
		UserAgent:   getEnv("USER_AGENT", "postfeed/"+version),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RedisURL:    os.Getenv("REDIS_URL"),
		RedisPrefix: getEnv("REDIS_PREFIX", store.DefaultPrefix),
		MetricsFile: os.Getenv("METRICS_FILE"),
	}

	var problems []string

	var err error
	if cfg.PageSize, err = getEnvInt("PAGE_SIZE", pagination.DefaultPageSize); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Timeout, err = getEnvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.FeedTTL, err = getEnvDuration("FEED_TTL", 0); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.LogPretty, err = getEnvBool("LOG_PRETTY", false); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return cfg, fmt.Errorf("invalid environment: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// validate checks the merged configuration before anything is started.
func (c config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base url must be absolute http(s) (got %q)", c.BaseURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be > 0 (got %d)", c.PageSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %s)", c.Timeout)
	}
	if c.FeedTTL < 0 {
		return fmt.Errorf("feed ttl must be >= 0 (got %s)", c.FeedTTL)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func (c config) redisOptions() (*redis.Options, error) {
	if strings.Contains(c.RedisURL, "://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a duration", key, value)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a boolean", key, value)
	}
	return b, nil
}
