package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/envelopeledger/internal/adapter/http"
	"github.com/iho/envelopeledger/internal/adapter/http/handler"
	"github.com/iho/envelopeledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/envelopeledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/envelopeledger/internal/adapter/repository/redis"
	sqliteRepo "github.com/iho/envelopeledger/internal/adapter/repository/sqlite"
	"github.com/iho/envelopeledger/internal/infrastructure/cache"
	"github.com/iho/envelopeledger/internal/infrastructure/config"
	"github.com/iho/envelopeledger/internal/infrastructure/idgen"
	"github.com/iho/envelopeledger/internal/infrastructure/logger"
	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
	"github.com/iho/envelopeledger/internal/infrastructure/postgres"
	"github.com/iho/envelopeledger/internal/infrastructure/redis"
	"github.com/iho/envelopeledger/internal/usecase"
)

const (
	cacheSweepInterval   = time.Minute
	limiterSweepInterval = 5 * time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

// storage is the set of backends the use cases run on.
type storage struct {
	books   usecase.BookRepository
	rules   usecase.RuleStore
	deps    []handler.Dependency
	closers []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegisterer(registry)

	var redisClient *goredis.Client
	if cfg.NeedsRedis() {
		client, err := redis.NewClient(ctx, redis.Options{URL: cfg.RedisURL, DialTimeout: 5 * time.Second, PingTimeout: 5 * time.Second})
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
		log.Info().Msg("connected to redis")
	}

	store, err := openStorage(ctx, cfg, redisClient, log, m)
	if err != nil {
		return err
	}
	defer store.Close()

	g, gctx := errgroup.WithContext(ctx)

	var reports usecase.ReportCache
	switch cfg.ReportCacheBackend {
	case config.CacheRedis:
		reports = redisRepo.NewReportCache(redisClient)
	default:
		memory := cache.NewMemory()
		g.Go(func() error {
			memory.RunSweeper(gctx, cacheSweepInterval)
			return nil
		})
		reports = memory
	}

	books := newLedgerBookUseCase(store, reports, cfg.ReportCacheTTL, log, m)

	routerCfg := httpAdapter.RouterConfig{
		BookHandler:        handler.NewBookHandler(books),
		RuleHandler:        handler.NewRuleHandler(store.rules),
		HealthHandler:      handler.NewHealthHandler(store.deps...),
		Logger:             log,
		Metrics:            m,
		Gatherer:           registry,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        newRateLimiter(cfg, m),
		IdempotencyTTL:     cfg.IdempotencyTTL,
	}
	if cfg.IdempotencyEnabled {
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}
	if rl := routerCfg.RateLimiter; rl != nil {
		g.Go(func() error {
			sweepLimiters(gctx, rl, log)
			return nil
		})
	}

	server := newServer(cfg, httpAdapter.NewRouter(routerCfg))

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("storage", cfg.StorageBackend).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStorage connects the configured backend for books and rules.
func openStorage(ctx context.Context, cfg *config.Config, redisClient *goredis.Client, log zerolog.Logger, m *metrics.Metrics) (*storage, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("connected to postgres")
		return &storage{
			books:   postgresRepo.NewBookRepository(pool, postgresRepo.NewRetrier(log, m), m),
			rules:   postgresRepo.NewRuleRepository(pool, m),
			deps:    []handler.Dependency{{Name: "postgres", Pinger: handler.PingFunc(pool.Ping)}},
			closers: []func(){pool.Close},
		}, nil

	case config.StorageRedis:
		return &storage{
			books: redisRepo.NewBookStore(redisClient, m),
			rules: redisRepo.NewRuleStore(redisClient, m),
			deps:  []handler.Dependency{{Name: "redis", Pinger: handler.PingFunc(redis.Ping(redisClient))}},
		}, nil

	case config.StorageSQLite:
		db, err := sqliteRepo.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite database")
		return &storage{
			books:   sqliteRepo.NewBookRepository(db, m),
			rules:   sqliteRepo.NewRuleRepository(db, m),
			deps:    []handler.Dependency{{Name: "sqlite", Pinger: handler.PingFunc(db.PingContext)}},
			closers: []func(){closeDB(db, log)},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func closeDB(db *sql.DB, log zerolog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close sqlite database")
		}
	}
}

func newLedgerBookUseCase(store *storage, reports usecase.ReportCache, reportTTL time.Duration, log zerolog.Logger, m *metrics.Metrics) *usecase.LedgerBookUseCase {
	refs := idgen.NewReferenceGenerator()
	builder := usecase.NewReconciliationBuilder(refs, log)
	recon := usecase.NewReconciliationUseCase(builder, store.rules, log, m)
	transfers := usecase.NewTransferUseCase(refs, store.rules, log, m)
	calc := usecase.NewLedgerCalculationUseCase(reports, reportTTL, log, m)
	return usecase.NewLedgerBookUseCase(store.books, recon, transfers, calc, log)
}

// newRateLimiter returns nil when rate limiting is switched off.
func newRateLimiter(cfg *config.Config, m *metrics.Metrics) *middleware.RateLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = int(cfg.RateLimitRPS) + 1
	}
	return middleware.NewRateLimiter(cfg.RateLimitRPS, burst, m)
}

func sweepLimiters(ctx context.Context, rl *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.CleanupLimiters(limiterMaxIdle); n > 0 {
				log.Debug().Int("removed", n).Msg("dropped idle rate limiters")
			}
		}
	}
}

func newServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}
