package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	supa "github.com/supabase-community/supabase-go"

	"appointment-portal-server/internal/cancellation"
	"appointment-portal-server/internal/changefeed"
	"appointment-portal-server/internal/config"
	"appointment-portal-server/internal/logging"
	"appointment-portal-server/internal/metrics"
	"appointment-portal-server/internal/middleware"
	"appointment-portal-server/internal/models"
	"appointment-portal-server/internal/notify"
	"appointment-portal-server/internal/routes"
	"appointment-portal-server/internal/store"
)

func main() {
	// A missing .env is fine when the environment is set by the platform
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := newFeed(ctx, cfg, logger)

	st, err := newStore(cfg, feed)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to initialise appointment store")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cancelMetrics := metrics.NewCancellationMetrics(registry)

	var notifier notify.Notifier = notify.Noop{Logger: logger}
	if cfg.Notifier.URL != "" {
		notifier = notify.NewWebhook(cfg.Notifier.URL,
			notify.WithSecret(cfg.Notifier.Secret),
			notify.WithTimeout(cfg.Notifier.Timeout))
	} else {
		logger.Warn().Msg("NOTIFIER_URL not set, cancellation notifications are disabled")
	}

	policy := cancellation.NewPolicy(cfg.Cancellation.LeadHours)
	executor := cancellation.NewExecutor(st, notifier,
		cancellation.WithLogger(logger.With().Str("component", "cancellation").Logger()),
		cancellation.WithMetrics(cancelMetrics),
		cancellation.WithNotifyTimeout(cfg.Notifier.Timeout),
		cancellation.WithDefaultReason(cfg.Cancellation.Reason))

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		Config:   cfg,
		Store:    st,
		Policy:   policy,
		Executor: executor,
		Metrics:  cancelMetrics,
		Gatherer: registry,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreDriver).
			Float64("lead_hours", policy.LeadHours).
			Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	executor.Wait()
}

// newFeed returns a Redis-backed feed when REDIS_ADDR is set, otherwise an
// in-process hub.
func newFeed(ctx context.Context, cfg *config.Config, logger zerolog.Logger) changefeed.Feed {
	if cfg.Redis.Addr == "" {
		return changefeed.NewHub()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	feed := changefeed.NewRedisFeed(client, cfg.Redis.Channel, logger)
	go func() {
		defer client.Close()
		if err := feed.Run(ctx, nil); err != nil {
			logger.Error().Err(err).Msg("change feed stopped")
		}
	}()
	return feed
}

func newStore(cfg *config.Config, feed changefeed.Feed) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSupabase:
		client, err := supa.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, nil)
		if err != nil {
			return nil, fmt.Errorf("connect to supabase: %w", err)
		}
		return store.NewSupabaseStore(client, cfg.Supabase.Table, feed), nil

	case config.DriverMemory:
		if cfg.Memory.SeedFile != "" {
			mem, err := store.LoadMemoryStore(cfg.Memory.SeedFile, feed)
			if err != nil {
				return nil, err
			}
			return mem, nil
		}
		return store.NewMemoryStore(feed), nil

	default:
		db, err := models.InitDB(models.DatabaseConfig{
			DSN:         cfg.Database.DSN,
			AutoMigrate: cfg.Database.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return store.NewGormStore(db, feed), nil
	}
}
