package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	FlowFromFile     = "file"
	FlowFromPostgres = "postgres"
)

// Config holds service configuration.
type Config struct {
	ServerAddr string

	StoreBackend string
	RedisURL     string
	InFlightTTL  time.Duration

	FlowSource         string
	FlowFile           string
	FlowName           string
	DatabaseURL        string
	FlowReloadInterval time.Duration

	RateLimitWindow time.Duration
	RateLimitMax    int
	SessionTTL      time.Duration
	PostbackTTL     time.Duration
	PostbackCap     int
	SweepInterval   time.Duration

	ChannelSecret      string
	ChannelAccessToken string
	ProfileAPIURL      string
	GuestName          string
	TriggerKeywords    []string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. Values in envFile, when it
// exists, are applied first without overriding variables already set.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "survey_hub")
		pass := getenv("POSTGRES_PASSWORD", "survey_hub_pass")
		db := getenv("POSTGRES_DB", "survey_hub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	cfg := &Config{
		ServerAddr:         getenv("SERVER_ADDR", "0.0.0.0:8080"),
		StoreBackend:       strings.ToLower(getenv("STORE_BACKEND", BackendMemory)),
		RedisURL:           getenv("REDIS_URL", "redis://localhost:6379/0"),
		InFlightTTL:        parseDuration(os.Getenv("INFLIGHT_TTL"), 30*time.Second),
		FlowSource:         strings.ToLower(getenv("FLOW_SOURCE", FlowFromFile)),
		FlowFile:           getenv("FLOW_FILE", "flows/subsidy.yaml"),
		FlowName:           getenv("FLOW_NAME", "subsidy-diagnosis"),
		DatabaseURL:        dsn,
		FlowReloadInterval: parseDuration(os.Getenv("FLOW_RELOAD_INTERVAL"), 30*time.Second),
		RateLimitWindow:    parseDuration(os.Getenv("RATE_LIMIT_WINDOW"), 10*time.Second),
		RateLimitMax:       parseInt(os.Getenv("RATE_LIMIT_MAX"), 3),
		SessionTTL:         parseDuration(os.Getenv("SESSION_TTL"), 30*time.Minute),
		PostbackTTL:        parseDuration(os.Getenv("POSTBACK_TTL"), 30*time.Minute),
		PostbackCap:        parseInt(os.Getenv("POSTBACK_CAP"), 20),
		SweepInterval:      parseDuration(os.Getenv("SWEEP_INTERVAL"), 5*time.Minute),
		ChannelSecret:      os.Getenv("LINE_CHANNEL_SECRET"),
		ChannelAccessToken: os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		ProfileAPIURL:      getenv("LINE_API_URL", "https://api.line.me"),
		GuestName:          os.Getenv("GUEST_NAME"),
		TriggerKeywords:    parseList(os.Getenv("TRIGGER_KEYWORDS")),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          getenv("LOG_FORMAT", "json"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.FlowSource {
	case FlowFromFile, FlowFromPostgres:
	default:
		return fmt.Errorf("unknown FLOW_SOURCE %q", c.FlowSource)
	}
	if c.RateLimitMax <= 0 {
		return errors.New("RATE_LIMIT_MAX must be positive")
	}
	return nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func parseList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
