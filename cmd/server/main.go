package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/example/carpool-matching/internal/cache"
	"github.com/example/carpool-matching/internal/config"
	"github.com/example/carpool-matching/internal/events"
	httpapi "github.com/example/carpool-matching/internal/http"
	"github.com/example/carpool-matching/internal/logging"
	"github.com/example/carpool-matching/internal/matcher"
	"github.com/example/carpool-matching/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewComponentLogger(cfg.LogLevel, "server")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := &matcher.Service{
		Policy: matcher.Policy{
			NowWindow:        cfg.Matcher.NowWindow,
			ScheduledWindow:  cfg.Matcher.ScheduledWindow,
			MaxDetourMinutes: cfg.Matcher.MaxDetourMinutes,
			SpeedKph:         cfg.Matcher.SpeedKph,
		},
		Logger: logger,
	}
	ready := map[string]httpapi.Check{}
	var closers []func() error

	// env-driven wiring with in-process fallbacks
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		svc.Cache = cache.NewRedis(rc, cfg.CacheTTL)
		ready["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
		closers = append(closers, rc.Close)
	} else if cfg.CacheTTL > 0 {
		svc.Cache = cache.NewMemory(cfg.CacheTTL)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		svc.Publisher = kp
		closers = append(closers, kp.Close)
	} else if cfg.PGDSN != "" {
		ps, err := openStore(ctx, cfg.PGDSN, cfg.RunMigrations, logger)
		if err != nil {
			logger.Error("postgres unavailable, match log disabled", "error", err)
		} else {
			svc.Publisher = &storage.Recorder{Log: ps}
			ready["postgres"] = ps.Ping
			closers = append(closers, ps.Close)
		}
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(svc, logger, ready),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("ride-matching listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	for _, c := range closers {
		if err := c(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	logger.Info("ride-matching stopped")
}

func openStore(ctx context.Context, dsn string, migrate bool, logger *slog.Logger) (*storage.PostgresStore, error) {
	ps, err := storage.NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := ps.Migrate(ctx); err != nil {
			_ = ps.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}
	return ps, nil
}
