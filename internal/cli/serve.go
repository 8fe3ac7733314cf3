package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coastwatch-systems/coastwatch/internal/events"
	"github.com/coastwatch-systems/coastwatch/internal/handlers"
	"github.com/coastwatch-systems/coastwatch/internal/hotspot"
	"github.com/coastwatch-systems/coastwatch/internal/middleware"
	"github.com/coastwatch-systems/coastwatch/internal/ratelimit"
	"github.com/coastwatch-systems/coastwatch/internal/realtime"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
	"github.com/coastwatch-systems/coastwatch/internal/server"
	"github.com/coastwatch-systems/coastwatch/internal/service"
	"github.com/coastwatch-systems/coastwatch/internal/stats"
	"github.com/coastwatch-systems/coastwatch/pkg/tokens"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coastwatch API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	if !skipMigrations {
		if err := runMigrations(); err != nil {
			return err
		}
	}

	ctx := context.Background()
	repo, err := repository.NewPostgresRepository(ctx, cfg.Database.Postgres.ConnString())
	if err != nil {
		return err
	}
	defer repo.Close()

	loc, err := time.LoadLocation(cfg.Stats.Timezone)
	if err != nil {
		log.Warn("invalid stats timezone, falling back to UTC", "timezone", cfg.Stats.Timezone)
		loc = time.UTC
	}

	// Optional egress mirror onto NATS.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.Enabled {
		natsPub, err := events.NewNATSPublisher(cfg.NATS.URL, log)
		if err != nil {
			return err
		}
		defer natsPub.Close()
		publisher = natsPub
	}

	// Report submission throttling; disabled without a Redis URL.
	var limiter ratelimit.Limiter = ratelimit.NopLimiter{}
	if cfg.Redis.URL != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(
			cfg.Redis.URL, cfg.Redis.RateLimitRequests, cfg.Redis.RateLimitWindow)
		if err != nil {
			return err
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
	}

	tokenGen := tokens.NewTokenGenerator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := service.NewAuthService(repo, tokenGen, log)

	hub := realtime.NewHub(authSvc, log)
	wsServer := realtime.NewServer(hub, cfg.Realtime.SendBuffer, log)

	aggregator := stats.NewAggregator(repo, loc)
	engine := hotspot.NewEngine(repo)
	dashboardSvc := service.NewDashboardService(repo, aggregator, engine, service.HotspotOptions{
		DefaultClusters:   cfg.Hotspots.DefaultClusters,
		DefaultWindowDays: cfg.Hotspots.DefaultWindowDays,
	}, log)
	reportSvc := service.NewReportService(repo, hub, dashboardSvc, publisher, log)

	router := server.NewRouter(server.RouterDeps{
		Auth:        handlers.NewAuthHandler(authSvc),
		Reports:     handlers.NewReportsHandler(reportSvc, dashboardSvc),
		Dashboard:   handlers.NewDashboardHandler(dashboardSvc),
		Health:      handlers.NewHealthHandler(repo, hub, Version),
		Realtime:    wsServer,
		AuthMW:      middleware.NewAuthMiddleware(authSvc),
		Limiter:     limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := server.New(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
	serveCmd.Flags().StringVar(&migrationsPath, "migrations", "migrations", "directory containing migration files")
	rootCmd.AddCommand(serveCmd)
}
