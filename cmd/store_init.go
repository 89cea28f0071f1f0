package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/oilpro/tanks-cli/internal/extract"
	"github.com/oilpro/tanks-cli/internal/reconcile"
	"github.com/oilpro/tanks-cli/internal/store"
	"github.com/oilpro/tanks-cli/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "tanks.db"
		}
		s, err := store.NewSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initReconciler() (*reconcile.Reconciler, *reconcile.Registry, error) {
	reg := reconcile.DefaultRegistry()
	if cfg.Reconcile.SynonymsPath != "" {
		loaded, err := reconcile.LoadRegistry(cfg.Reconcile.SynonymsPath)
		if err != nil {
			return nil, nil, err
		}
		reg = loaded
	}
	return reconcile.New(reconcile.WithRegistry(reg)), reg, nil
}

func initExtractor() (*extract.Extractor, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic key is required (OILPRO_ANTHROPIC_KEY)")
	}

	_, reg, err := initReconciler()
	if err != nil {
		return nil, err
	}

	client := anthropic.NewClient(cfg.Anthropic.Key)
	return extract.New(client, reg, extract.Config{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         int64(cfg.Anthropic.MaxTokens),
		Temperature:       cfg.Anthropic.Temperature,
		RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
	}), nil
}
