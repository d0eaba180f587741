package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/config"
	"github.com/eryai/mimre/internal/engine"
	"github.com/eryai/mimre/internal/model/companion"
	"github.com/eryai/mimre/internal/service/selector"
	"github.com/eryai/mimre/internal/storage"
)

type app struct {
	selector *selector.Selector
	closers  []func() error
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	var store storage.Storage
	if cfg.Storage.Ephemeral {
		store = storage.NewMemoryStore()
		logger.Info("using in-memory storage, choices are lost on exit")
	} else {
		sqlite, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage %s: %w", cfg.Storage.Path, err)
		}
		a.closers = append(a.closers, sqlite.Close)
		store = sqlite
	}

	client := engine.NewClient(cfg.Engine.BaseURL,
		engine.WithTimeout(cfg.Engine.Timeout),
		engine.WithLogger(logger.Named("engine")),
	)

	sel, err := selector.New(selector.Config{
		Companions: companion.Default(),
		Backend:    client,
		Storage:    store,
		Slug:       cfg.Engine.Slug,
		Logger:     logger.Named("chat"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.selector = sel

	logger.Info("mimre ready",
		zap.String("engine_url", cfg.Engine.BaseURL),
		zap.String("slug", cfg.Engine.Slug),
		zap.Bool("ephemeral", cfg.Storage.Ephemeral),
	)
	return a, nil
}

func (a *app) Close() {
	if a.selector != nil {
		a.selector.Close()
	}
	for _, closeFn := range a.closers {
		_ = closeFn()
	}
}
