package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/auth"
	"github.com/dylantneal/eng.com-sub003/internal/cache"
	"github.com/dylantneal/eng.com-sub003/internal/config"
	"github.com/dylantneal/eng.com-sub003/internal/feed"
	"github.com/dylantneal/eng.com-sub003/internal/logger"
	"github.com/dylantneal/eng.com-sub003/internal/server"
	"github.com/dylantneal/eng.com-sub003/internal/storage"
	"github.com/dylantneal/eng.com-sub003/internal/storage/memory"
	"github.com/dylantneal/eng.com-sub003/internal/storage/neo4j"
	"github.com/dylantneal/eng.com-sub003/internal/storage/postgres"
	"github.com/dylantneal/eng.com-sub003/internal/storage/sqlite"
	"github.com/dylantneal/eng.com-sub003/internal/telemetry"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// store - хранилище, которое держит и контент, и связи
type store interface {
	storage.ContentStore
	storage.RelationshipStore
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер ленты",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.ConfigPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	log := logger.New(cfg.Server.Env)

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName, cfg.Server.Env)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать трассировку: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("Ошибка остановки трассировки")
		}
	}()

	content, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer content.Close()

	rel, err := openRelationships(ctx, cfg, content, log)
	if err != nil {
		return err
	}
	if rel != storage.RelationshipStore(content) {
		defer rel.Close()
	}

	respCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer respCache.Close()

	paginator := feed.NewPaginator(content, feed.RelationshipResolvers(rel), cfg.Feed.PageSize, log)
	authManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	srv := server.New(cfg, paginator, respCache, authManager, log)
	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (store, error) {
	log := logger.WithField("driver", cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case "postgres":
		log.Info("Инициализация хранилища PostgreSQL")
		s, err := postgres.New(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("не удалось инициализировать PostgreSQL: %w", err)
		}
		return s, nil
	case "sqlite":
		log.WithField("path", cfg.Storage.SQLite.Path).Info("Инициализация хранилища SQLite")
		s, err := sqlite.Open(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("не удалось инициализировать SQLite: %w", err)
		}
		return s, nil
	case "memory":
		log.Info("Инициализация хранилища Memory")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %s", cfg.Storage.Driver)
	}
}

func openRelationships(ctx context.Context, cfg *config.Config, s store, log logrus.FieldLogger) (storage.RelationshipStore, error) {
	if cfg.Relationships.Driver != "neo4j" {
		return s, nil
	}
	log.WithField("uri", cfg.Relationships.Neo4j.URI).Info("Подключение к Neo4j")
	g, err := neo4j.New(ctx, cfg.Relationships.Neo4j.URI, cfg.Relationships.Neo4j.Username, cfg.Relationships.Neo4j.Password)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к Neo4j: %w", err)
	}
	return g, nil
}

func openCache(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (cache.Cache, error) {
	switch cfg.Cache.Driver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			return nil, fmt.Errorf("redis tracing: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
		}
		log.WithField("addr", cfg.Cache.Redis.Addr).Info("Кэш ленты: Redis")
		return cache.NewRedis(rdb), nil
	case "memory":
		log.Info("Кэш ленты: Memory")
		return cache.NewMemory(time.Minute), nil
	default:
		return cache.Noop{}, nil
	}
}
