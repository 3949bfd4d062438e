package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/config"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/media"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		zap.L().Fatal("invalid configuration", zap.Error(err))
	}

	if err := run(cfg); err != nil {
		zap.L().Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	cartCache, closeCache := openCache(cfg)
	defer closeCache()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var wg sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, cfg.KafkaBrokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(ctx)
		}()
		zap.L().Info("outbox publisher started", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		zap.L().Info("KAFKA_BROKERS not set, outbox publisher disabled")
	}

	catalog := service.NewCatalogService(repo)
	carts := service.NewCartService(repo, repo, cartCache)
	orders := service.NewOrderService(repo)
	admin := service.NewAdminService(repo, media.NewStore(cfg.MediaDir))

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SessionSecret:      cfg.SessionSecret,
		JWTSecret:          cfg.JWTSecret,
		AdminAPIKey:        cfg.AdminAPIKey,
	}, h.NewSessionStore(cfg.SessionSecret), h.Handlers{
		Products: h.NewProductHandler(catalog, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(carts, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(carts, service.NewCheckoutService(repo), cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(orders, cfg.RequestTimeout),
		Admin:    h.NewAdminHandler(admin, orders, cfg.RequestTimeout, cfg.MaxUploadSize),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zap.L().Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.String("db", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	zap.L().Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server forced to shutdown", zap.Error(err))
	}
	stop()
	wg.Wait()

	zap.L().Info("server exited")
	return nil
}

func openRepository(cfg *config.Config) (*repository.Repository, error) {
	switch cfg.DBDriver {
	case "postgres":
		return repository.NewRepository(&repository.Credentials{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
		})
	case "sqlite":
		return repository.NewSQLiteRepository(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// openCache returns the Redis cart cache when REDIS_ADDR is set. An
// unreachable Redis is only a warning; the breaker keeps requests on the
// database until it recovers.
func openCache(cfg *config.Config) (cache.CartCache, func()) {
	if cfg.RedisAddr == "" {
		zap.L().Info("REDIS_ADDR not set, cart cache disabled")
		return cache.NoopCache{}, func() {}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		zap.L().Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
	}

	return cache.NewRedisCache(redisClient), func() { _ = redisClient.Close() }
}
