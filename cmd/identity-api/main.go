package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/99minutos/identity-service/internal/api"
	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/core/security"
	"github.com/99minutos/identity-service/internal/core/service"
	"github.com/99minutos/identity-service/internal/infrastructure/db/memory"
	mongodb "github.com/99minutos/identity-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/identity-service/internal/infrastructure/db/postgres"
	redisdb "github.com/99minutos/identity-service/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-service/internal/infrastructure/queue"
	"github.com/99minutos/identity-service/internal/pkg/config"
	"github.com/99minutos/identity-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "identity-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("identity-api stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	registry, checks, closeRegistry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRegistry()

	var cache ports.IdentityCache
	if cfg.CacheEnabled() {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		cache = redisdb.NewIdentityCache(rdb, cfg.Redis.CacheTTL)
		checks = append(checks, handler.DependencyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Info().Dur("ttl", cfg.Redis.CacheTTL).Msg("identity cache enabled")
	}

	// The pool outlives ctx so requests drained during shutdown can still hash.
	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()
	pool := queue.NewHashPool(cfg.HashWorkers, logger.Component("hash_pool"))
	pool.Start(poolCtx)
	hasher := queue.NewPooledHasher(pool, security.NewArgon2Hasher())
	hasher.OnDuration = metrics.ObserveHash

	tokens, err := security.NewJWTService(cfg.Auth.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Dependencies{
		Auth:           service.NewAuthService(registry, hasher, tokens, logger.Component("auth")),
		Users:          service.NewUserService(registry, cache, logger.Component("users")),
		Authz:          service.NewGate(registry, tokens, cache, logger.Component("gate")),
		Readiness:      checks,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("registry", cfg.Registry.Driver).Msg("identity-api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// openRegistry connects the configured registry driver and returns its
// readiness probes together with a close function.
func openRegistry(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.UserRegistry, []handler.DependencyCheck, func(), error) {
	switch cfg.Registry.Driver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "identity-api",
		})
		if err != nil {
			return nil, nil, nil, err
		}
		registry := mongodb.NewUserRegistry(db)
		if err := registry.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		checks := []handler.DependencyCheck{{
			Name: "mongodb",
			Ping: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		}}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}
		return registry, checks, closeFn, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		registry, err := postgres.NewUserRegistry(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		checks := []handler.DependencyCheck{{Name: "postgres", Ping: db.PingContext}}
		closeFn := func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("postgres close")
			}
		}
		return registry, checks, closeFn, nil

	default:
		log.Warn().Msg("using in-memory registry; identities are lost on restart")
		return memory.NewUserRegistry(), nil, func() {}, nil
	}
}
