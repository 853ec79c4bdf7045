package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Redis backs the match cache when set; otherwise an in-memory cache is used.
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	Matcher MatcherConfig

	LogLevel      string
	RunMigrations bool
}

// MatcherConfig overrides the matching policy bounds.
type MatcherConfig struct {
	NowWindow        time.Duration
	ScheduledWindow  time.Duration
	MaxDetourMinutes float64
	SpeedKph         float64
}

// ConsumerConfig is the configuration of the match-event audit consumer.
type ConsumerConfig struct {
	MetricsAddr  string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string
	PGDSN        string
	SaveAttempts int
	SaveDelay    time.Duration

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		CacheTTL:        30 * time.Second,
		KafkaTopic:      "ride-matches",
		Matcher: MatcherConfig{
			NowWindow:        5 * time.Minute,
			ScheduledWindow:  15 * time.Minute,
			MaxDetourMinutes: 5,
			SpeedKph:         30,
		},
		LogLevel: "info",
	}
}

func defaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		MetricsAddr:  ":2112",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "ride-matches",
		KafkaGroup:   "ride-matching-audit",
		SaveAttempts: 3,
		SaveDelay:    200 * time.Millisecond,
		LogLevel:     "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setDurationFromEnv(&cfg.CacheTTL, "CACHE_TTL", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setDurationFromEnv(&cfg.Matcher.NowWindow, "MATCHER_NOW_WINDOW", &errs)
	setDurationFromEnv(&cfg.Matcher.ScheduledWindow, "MATCHER_SCHEDULED_WINDOW", &errs)
	setFloatFromEnv(&cfg.Matcher.MaxDetourMinutes, "MATCHER_MAX_DETOUR_MINUTES", &errs)
	setFloatFromEnv(&cfg.Matcher.SpeedKph, "MATCHER_SPEED_KPH", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.Matcher.NowWindow < 0 || cfg.Matcher.ScheduledWindow < 0 {
		errs = append(errs, fmt.Errorf("matcher windows must be >= 0"))
	}
	if !finite(cfg.Matcher.MaxDetourMinutes) || cfg.Matcher.MaxDetourMinutes < 0 {
		errs = append(errs, fmt.Errorf("MATCHER_MAX_DETOUR_MINUTES must be a finite number >= 0"))
	}
	if !finite(cfg.Matcher.SpeedKph) || cfg.Matcher.SpeedKph <= 0 {
		errs = append(errs, fmt.Errorf("MATCHER_SPEED_KPH must be a finite number > 0"))
	}
	if cfg.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be >= 0"))
	}

	return cfg, errors.Join(errs...)
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := defaultConsumerConfig()
	var errs []error

	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	cfg.PGDSN = os.Getenv("PG_DSN")
	setIntFromEnv(&cfg.SaveAttempts, "CONSUMER_SAVE_ATTEMPTS", &errs)
	setDurationFromEnv(&cfg.SaveDelay, "CONSUMER_SAVE_DELAY", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must list at least one broker"))
	}
	if cfg.SaveAttempts <= 0 {
		errs = append(errs, fmt.Errorf("CONSUMER_SAVE_ATTEMPTS must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
