package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.KafkaTopic != "ride-matches" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Matcher.NowWindow != 5*time.Minute || cfg.Matcher.ScheduledWindow != 15*time.Minute {
		t.Fatalf("unexpected matcher windows: %+v", cfg.Matcher)
	}
	if cfg.Matcher.MaxDetourMinutes != 5 || cfg.Matcher.SpeedKph != 30 {
		t.Fatalf("unexpected matcher bounds: %+v", cfg.Matcher)
	}
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("MATCHER_NOW_WINDOW", "2m")
	t.Setenv("MATCHER_MAX_DETOUR_MINUTES", "7.5")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("MIGRATE", "TRUE")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.Matcher.NowWindow != 2*time.Minute || cfg.Matcher.MaxDetourMinutes != 7.5 {
		t.Fatalf("unexpected matcher config %+v", cfg.Matcher)
	}
	if cfg.CacheTTL != time.Minute || cfg.LogLevel != "debug" || !cfg.RunMigrations {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadServerConfigAggregatesErrors(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "soon")
	t.Setenv("MATCHER_SPEED_KPH", "0")
	_, err := LoadServerConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"HTTP_READ_TIMEOUT", "MATCHER_SPEED_KPH"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}

	t.Setenv("HTTP_READ_TIMEOUT", "")
	t.Setenv("MATCHER_SPEED_KPH", "Inf")
	t.Setenv("MATCHER_MAX_DETOUR_MINUTES", "NaN")
	_, err = LoadServerConfig()
	if err == nil {
		t.Fatal("expected error for non-finite matcher bounds")
	}
	for _, want := range []string{"MATCHER_MAX_DETOUR_MINUTES", "MATCHER_SPEED_KPH"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestLoadConsumerConfig(t *testing.T) {
	t.Setenv("KAFKA_GROUP", "audit-2")
	t.Setenv("CONSUMER_SAVE_ATTEMPTS", "5")
	cfg, err := LoadConsumerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KafkaGroup != "audit-2" || cfg.SaveAttempts != 5 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("CONSUMER_SAVE_ATTEMPTS", "0")
	if _, err := LoadConsumerConfig(); err == nil {
		t.Fatal("expected error for zero attempts")
	}
}
