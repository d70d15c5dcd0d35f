package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DevBuyLocal/LocalBuy-sub000/internal/api"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/auth"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/callback"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/cart"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/lifecycle"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/monitor"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/notify"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/orderlock"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/reconcile"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/settlement"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/config"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/db"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/env"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/metrics"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/migrate"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "localbuy"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "localbuy",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeAutoRun(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	creds, err := auth.NewProvider(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create credential provider", err)
		os.Exit(1)
	}

	apiClient, err := api.NewClient(cfg.API, creds, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create api client", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewLineRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	reconciler, err := reconcile.NewService(apiClient, cartService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	locks := orderlock.NewRegistry()
	engine, err := settlement.NewService(apiClient, apiClient, locks, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement engine", err)
		os.Exit(1)
	}

	var sink notify.Sink = notify.NewLogSink(logg)
	var sweepLock monitor.Lock
	if redisClient != nil {
		sink = notify.NewDedupeSink(sink, redisClient, cfg.Monitor.NotifyDedupeTTL, logg)
		sweepLock, err = monitor.NewRedisLock(redisClient, redisClient.LockKey("payment_sweep"), cfg.Monitor.SweepLockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create sweep lock", err)
			os.Exit(1)
		}
	}

	signalSource := lifecycle.NewSignal()
	monitorService, err := monitor.NewService(monitor.ServiceParams{
		Logger:    logg,
		Orders:    apiClient,
		Sink:      sink,
		Locks:     locks,
		Lifecycle: signalSource,
		SweepLock: sweepLock,
		Metrics:   metrics.NewMonitorMetrics(prometheus.DefaultRegisterer),
		Interval:  cfg.Monitor.PollInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment monitor", err)
		os.Exit(1)
	}

	// Logging in pushes the staged cart to the server and seeds the
	// monitor with whatever orders are still settling.
	creds.OnAuthenticated(func(ctx context.Context) {
		go func() {
			if err := reconciler.Run(ctx); err != nil {
				logg.Error(ctx, "cart reconciliation failed", err)
			}
			if err := monitorService.Seed(ctx); err != nil {
				logg.Error(ctx, "payment monitor seeding failed", err)
			}
		}()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if token := env.Get("LOCALBUY_SESSION_TOKEN", ""); token != "" {
		if err := creds.SetToken(ctx, token); err != nil {
			logg.Error(ctx, "rejected session token from environment", err)
		}
	}

	watchLifecycle(ctx, logg, signalSource)

	server := &http.Server{
		Addr:    cfg.Callback.Addr,
		Handler: callback.NewHandler(cfg.Callback, logg, engine),
	}
	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.Callback.Addr), "callback server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "callback server stopped unexpectedly", err)
			stop()
		}
	}()

	logg.Info(ctx, "starting payment monitor")
	if err := monitorService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "payment monitor stopped unexpectedly", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Callback.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "callback server shutdown failed", err)
	}

	logg.Info(ctx, "localbuy shutting down gracefully")
}

// watchLifecycle maps SIGUSR1/SIGUSR2 onto background/foreground so the
// host shell can tell the daemon when the UI loses or regains focus.
func watchLifecycle(ctx context.Context, logg *logger.Logger, signalSource *lifecycle.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for {
			select {
			case <-ctx.Done():
				signal.Stop(ch)
				return
			case sig := <-ch:
				switch sig {
				case syscall.SIGUSR1:
					logg.Info(ctx, "entering background")
					signalSource.Set(lifecycle.StateBackground)
				case syscall.SIGUSR2:
					logg.Info(ctx, "entering foreground")
					signalSource.Set(lifecycle.StateForeground)
				}
			}
		}
	}()
}
