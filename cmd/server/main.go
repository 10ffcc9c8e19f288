package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpAdapter "github.com/iho/tally/internal/adapter/http"
	"github.com/iho/tally/internal/adapter/http/handler"
	"github.com/iho/tally/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/tally/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/tally/internal/adapter/repository/redis"
	"github.com/iho/tally/internal/infrastructure/config"
	"github.com/iho/tally/internal/infrastructure/logger"
	"github.com/iho/tally/internal/infrastructure/postgres"
	"github.com/iho/tally/internal/infrastructure/redis"
	"github.com/iho/tally/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx := context.Background()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// The pool itself is created lazily on first use.
	store := postgresRepo.NewStore(cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	defer store.Close()

	if err := verifyLedger(ctx, store); err != nil {
		log.Error().Err(err).Msg("startup consistency check failed")
	} else {
		log.Info().Msg("startup consistency check passed")
	}

	var (
		cache            usecase.Cache
		idempotencyStore usecase.IdempotencyStore
	)

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		log.Info().Msg("connected to redis")

		redisClient = client
		cache = redisRepo.NewCache(client)
		idempotencyStore = redisRepo.NewIdempotencyStore(client)
	}

	// Repositories
	accountRepo := postgresRepo.NewAccountRepository(store)
	entryRepo := postgresRepo.NewEntryRepository(store)
	retrier := postgresRepo.NewRetrier(log.Logger)
	idGen := postgresRepo.NewULIDGenerator()

	// Use cases
	accountUC := usecase.NewAccountUseCase(store, retrier, accountRepo, entryRepo, idGen, cache)
	entryUC := usecase.NewEntryUseCase(entryRepo)
	ledgerUC := usecase.NewLedgerUseCase(store, retrier, accountRepo, entryRepo, idGen, cache)

	// Handlers
	accountHandler := handler.NewAccountHandler(accountUC)
	entryHandler := handler.NewEntryHandler(entryUC)
	ledgerHandler := handler.NewLedgerHandler(ledgerUC)
	healthHandler := handler.NewHealthHandler(store, redisClient)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				rateLimiter.Prune(time.Hour)
			}
		}()
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   accountHandler,
		EntryHandler:     entryHandler,
		LedgerHandler:    ledgerHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		RateLimiter:      rateLimiter,
		Logger:           log.Logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// verifyLedger compares the sum of all account balances against the sum of
// all entry amounts in one snapshot. The two totals are equal whenever every
// past mutation committed its balance delta with its entry write.
func verifyLedger(ctx context.Context, store *postgresRepo.Store) error {
	return store.WithinTx(ctx, func(tx pgx.Tx) error {
		var balanceSum, entrySum string

		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0)::text FROM accounts`).Scan(&balanceSum); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM entries`).Scan(&entrySum); err != nil {
			return err
		}

		balances, err := decimal.NewFromString(balanceSum)
		if err != nil {
			return err
		}

		entries, err := decimal.NewFromString(entrySum)
		if err != nil {
			return err
		}

		if !balances.Equal(entries) {
			return fmt.Errorf("ledger drift: balances total %s, entries total %s", balances, entries)
		}

		return nil
	})
}
