package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/cart"
	"github.com/terra-clan/studyhub/internal/config"
	"github.com/terra-clan/studyhub/internal/content"
	"github.com/terra-clan/studyhub/internal/health"
	"github.com/terra-clan/studyhub/internal/marketplace"
	"github.com/terra-clan/studyhub/internal/recommend"
	"github.com/terra-clan/studyhub/internal/storage"
)

// app is the wired set of collaborators shared by every command
type app struct {
	repo    storage.Repository
	svc     *marketplace.Service
	content *content.Loader
	health  *health.Registry
	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{health: health.NewRegistry(0)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openStorage(ctx, cfg); err != nil {
		return nil, err
	}

	carts, err := a.openCarts(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	keywords := recommend.DefaultKeywords()
	if cfg.Recommend.KeywordsFile != "" {
		keywords, err = recommend.LoadKeywordsFile(cfg.Recommend.KeywordsFile)
		if err != nil {
			return nil, err
		}
		slog.Info("recommendation keywords loaded", "file", cfg.Recommend.KeywordsFile)
	}

	guard, err := newGuard(cfg.Authz)
	if err != nil {
		return nil, err
	}

	a.content, err = content.NewLoader()
	if err != nil {
		return nil, err
	}
	if cfg.Content.Dir != "" {
		if err := a.content.LoadFromDir(cfg.Content.Dir); err != nil {
			slog.Warn("failed to load content from dir", "dir", cfg.Content.Dir, "error", err)
		}
	}

	a.svc, err = marketplace.New(marketplace.Deps{
		Repo:    a.repo,
		Carts:   carts,
		Engine:  recommend.NewEngine(keywords, a.repo),
		Guard:   guard,
		Content: a.content,
	}, marketplace.Config{
		JWTSecret:  cfg.Auth.JWTSecret,
		SessionTTL: cfg.Auth.SessionTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *app) openStorage(ctx context.Context, cfg *config.Config) error {
	if cfg.Storage.Driver == config.DriverMemory {
		repo := storage.NewMemoryRepository()
		a.repo = repo
		a.health.Register(health.NewCheckerFunc("storage", repo.Ping))
		slog.Warn("using in-memory storage, data is lost on restart")
		return nil
	}

	// Run database migrations
	if cfg.Database.AutoMigrate {
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(ctx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		MaxLifetime:  cfg.Database.MaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to create database repository: %w", err)
	}
	a.repo = repo
	a.closers = append(a.closers, repo)
	slog.Info("database connected successfully")

	checker, err := health.NewPostgresChecker(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to create postgres checker: %w", err)
	}
	a.health.Register(checker)
	a.closers = append(a.closers, checker)
	return nil
}

func (a *app) openCarts(ctx context.Context, cfg config.RedisConfig) (cart.Store, error) {
	if cfg.Address == "" {
		slog.Info("carts kept in memory")
		return cart.NewMemoryStore(), nil
	}

	store, err := cart.NewRedisStore(ctx, cart.RedisConfig{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   cfg.Prefix,
		TTL:      cfg.CartTTL,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store)
	a.health.Register(health.NewRedisChecker(store.Client()))
	slog.Info("redis connected", "addr", cfg.Address)
	return store, nil
}

func newGuard(cfg config.AuthzConfig) (*authz.Guard, error) {
	if cfg.PolicyFile == "" {
		return authz.NewGuard()
	}
	slog.Info("loading access policy", "file", cfg.PolicyFile)
	return authz.NewGuardFromFile(cfg.PolicyFile)
}

// Close releases connections in reverse order of opening
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			slog.Error("close error", "error", err)
		}
	}
	a.closers = nil
}
