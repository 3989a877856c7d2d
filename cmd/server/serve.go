package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neuropulse/internal/config"
	"neuropulse/internal/database"
	"neuropulse/internal/handlers"
	"neuropulse/internal/middleware"
	"neuropulse/internal/observers"
	"neuropulse/internal/router"
	"neuropulse/internal/services"
	"neuropulse/internal/websocket"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(true)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cfg, logger)
		},
	}
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting neuropulse", zap.String("version", version), zap.String("env", cfg.Env))

	// ──── Session Store ────
	store, err := openMigratedStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("session store ready", zap.String("driver", cfg.StoreDriver))

	// ──── Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClients.Close()
	logger.Info("redis connected")

	// ──── Category Table ────
	categories := services.DefaultCategoryTable()
	if cfg.CategoryTablePath != "" {
		categories, err = services.LoadCategoryTable(cfg.CategoryTablePath)
		if err != nil {
			return err
		}
		logger.Info("category table loaded", zap.String("path", cfg.CategoryTablePath))
	}

	// ──── Observers & Monitor ────
	feed := observers.NewUsageFeed(redisClients.Observers, cfg.UsageWindow, logger)
	unlocks := observers.NewUnlockObserver(redisClients.Observers)
	notifications := observers.NewNotificationObserver(redisClients.Observers)

	monitor := services.NewUsageMonitor(
		services.NewUsageAggregator(feed, cfg.UsageWindow),
		store,
		unlocks,
		notifications,
		observers.NewPublisher(redisClients.Observers),
		services.MonitorConfig{
			Interval: cfg.MonitorInterval,
			Night: services.NightWindow{
				StartHour: cfg.NightStartHour,
				EndHour:   cfg.NightEndHour,
				Location:  cfg.Location(),
			},
			Categories: categories,
		},
		logger,
	)

	// ──── HTTP Surface ────
	var jwtAuth *middleware.JWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth = middleware.NewJWTAuth(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, API is unauthenticated")
	}

	ingestLimiter := middleware.NewRateLimiter(cfg.IngestRateLimit, time.Minute)
	defer ingestLimiter.Close()

	wsHub := websocket.NewHub(redisClients.PubSub, observers.UpdatesChannel, jwtAuth, logger)
	defer wsHub.Close()

	r := router.New(
		jwtAuth,
		ingestLimiter,
		handlers.NewMonitorHandler(monitor, logger),
		handlers.NewSessionHandler(monitor, logger),
		handlers.NewEventsHandler(unlocks, notifications, feed, logger),
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.AutoStart {
		monitor.Start()
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	logger.Info("neuropulse ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)),
		zap.Bool("autostart", cfg.AutoStart),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serveUntilDone(ctx, server, ln, monitor, logger)
}

type stopper interface {
	Stop()
}

// serveUntilDone serves on ln until ctx is cancelled, then drains in-flight
// requests and stops the monitor. It returns only after the drain, so the
// caller's deferred closes never race a running handler.
func serveUntilDone(ctx context.Context, server *http.Server, ln net.Listener, monitor stopper, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()

		logger.Info("shutting down")
		monitor.Stop()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}

		// A start request accepted during the drain may have restarted it.
		monitor.Stop()
	}()

	err := server.Serve(ln)
	cancel()
	<-drained

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
