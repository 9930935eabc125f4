package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/liamcoop/labourcompliance/holidays"
	"github.com/liamcoop/labourcompliance/internal/config"
	"github.com/liamcoop/labourcompliance/internal/logger"
	"github.com/liamcoop/labourcompliance/internal/metrics"
	"github.com/liamcoop/labourcompliance/organizations"
	"github.com/liamcoop/labourcompliance/rules"
)

// openDeps selects Postgres or in-memory stores and the Redis or in-memory
// rule cache. The returned func releases every connection.
func openDeps(ctx context.Context, cfg config.Config, log *slog.Logger) (Deps, func(), error) {
	deps := Deps{
		Metrics:        metrics.New(),
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
	}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return Deps{}, nil, fmt.Errorf("failed to open database: %w", err)
		}
		closers = append(closers, func() { db.Close() })

		if err := db.PingContext(ctx); err != nil {
			closeAll()
			return Deps{}, nil, fmt.Errorf("failed to ping database: %w", err)
		}

		deps.DB = db
		deps.Rules = rules.NewPostgresRuleStore(db)
		deps.Organizations = organizations.NewPostgresStore(db)
		deps.Holidays = holidays.Merge(holidays.Statutory{}, holidays.NewPostgresSource(db))
		log.InfoContext(ctx, "using postgres stores")
	} else {
		deps.Rules = rules.NewInMemoryRuleStore()
		deps.Organizations = organizations.NewInMemoryStore()
		deps.Holidays = holidays.Statutory{}
		log.InfoContext(ctx, "using in-memory stores")
	}

	cacheConfig := rules.CacheConfig{TTL: cfg.RulesCacheTTL}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll()
			return Deps{}, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		closers = append(closers, func() { client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			closeAll()
			return Deps{}, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		deps.Cache = rules.NewRedisRulesCache(client, cacheConfig, log)
		log.InfoContext(ctx, "using redis rule cache", "ttl", cfg.RulesCacheTTL)
	} else {
		deps.Cache = rules.NewInMemoryRulesCache(cacheConfig)
	}

	return deps, closeAll, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.Log)
	defer logger.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := openDeps(ctx, cfg, log)
	if err != nil {
		logger.Fatal("failed to open stores", "error", err)
	}
	defer closeDeps()

	server, err := NewServer(ctx, deps)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	// The in-memory store starts empty, so it is always seeded. Against
	// Postgres the catalog is only applied when watching it.
	watcher := rules.NewCatalogWatcher(cfg.RulesCatalog, server.provider, log)
	if deps.DB == nil || cfg.RulesCatalogWatch {
		if err := watcher.Reload(ctx); err != nil {
			logger.Fatal("failed to load rule catalog", "path", cfg.RulesCatalog, "error", err)
		}
	}
	if cfg.RulesCatalogWatch {
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				log.Error("rule catalog watcher exited", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}

	log.Info("server stopped")
}
