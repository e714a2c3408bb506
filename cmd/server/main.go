package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/weather-insights/internal/api"
	"github.com/neexbeast/weather-insights/internal/config"
	"github.com/neexbeast/weather-insights/internal/lock"
	"github.com/neexbeast/weather-insights/internal/report"
	"github.com/neexbeast/weather-insights/internal/scheduler"
	"github.com/neexbeast/weather-insights/internal/storage"
	"github.com/neexbeast/weather-insights/internal/weather"
	"github.com/neexbeast/weather-insights/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := newLogger(os.Stdout, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// newLogger builds the JSON logger and installs it as the slog default so
// package-level slog calls honor the configured level.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log
}

func run(cfg *config.Config, log *slog.Logger) error {
	if err := cfg.Require("DATABASE_URL", "BEARER_TOKEN", "WEATHER_API_KEY"); err != nil {
		return err
	}

	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied")

	// Redis is optional; without it locks only cover this process.
	var (
		locker      lock.Locker = lock.NewLocal()
		redisHealth api.Pinger
	)
	if cfg.RedisURL != "" {
		redisClient, err := lock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		locker = lock.NewRedis(redisClient, cfg.LockTTL)
		redisHealth = &redisPingerAdapter{client: redisClient}
	}

	// Wire dependencies.
	client := weather.NewClientWithURL(cfg.WeatherAPIURL, cfg.WeatherAPIKey).
		WithRateLimit(cfg.WeatherAPIRPS, cfg.WeatherAPIBurst)
	fetcher := weather.NewFetcher(client)
	repo := storage.NewRepository(pool)
	reports := report.NewService(repo, fetcher, locker, log).
		WithConcurrency(cfg.BackfillConcurrency)

	sched := scheduler.New(reports, cfg.RefreshInterval, cfg.RefreshDays, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	handlers := api.NewHandlers(fetcher, repo, reports, log)
	router := api.NewRouter(handlers, cfg.BearerToken, &pgxPoolPinger{pool: pool}, redisHealth, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// pgxPoolPinger adapts pgxpool.Pool to api.Pinger.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to api.Pinger.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
