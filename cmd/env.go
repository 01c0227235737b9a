package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner-cli/internal/classify"
	"github.com/sells-group/datacleaner-cli/internal/cost"
	"github.com/sells-group/datacleaner-cli/internal/engine"
	"github.com/sells-group/datacleaner-cli/internal/storage"
	"github.com/sells-group/datacleaner-cli/internal/store"
	"github.com/sells-group/datacleaner-cli/internal/transform"
	anthropicpkg "github.com/sells-group/datacleaner-cli/pkg/anthropic"
)

// env bundles the wired collaborators a command needs.
type env struct {
	Store   store.Store
	Storage storage.Storage
	Engine  *engine.Engine
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "datacleaner.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	blobs, err := storage.NewLocal(cfg.Storage.Dir)
	if err != nil {
		st.Close()
		return nil, err
	}

	var rules *transform.Rules
	if cfg.Engine.RulesFile != "" {
		rules, err = transform.LoadRules(cfg.Engine.RulesFile)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	adapter := classify.NewAdapter(client, st, cfg.Anthropic)
	costs := cost.NewCalculator(cost.DefaultRates())

	return &env{
		Store:   st,
		Storage: blobs,
		Engine:  engine.New(st, blobs, adapter, costs, cfg, rules),
	}, nil
}
