package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/config"
	"github.com/Veraticus/pnl-categorizer/internal/guardrail"
	"github.com/Veraticus/pnl-categorizer/internal/llm"
	"github.com/Veraticus/pnl-categorizer/internal/orgconfig"
	"github.com/Veraticus/pnl-categorizer/internal/storage"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// openStorage opens the configured database and brings its schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	path := config.DatabasePath(viper.GetViper())
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Cannot open database %s; check database.path or --db", path), err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// pipeline holds what every categorizing command needs.
type pipeline struct {
	tax        *taxonomy.Taxonomy
	guardrails *guardrail.Engine
	scorer     *llm.Scorer // nil when pass 2 is disabled
}

// newPipeline builds the taxonomy, guardrails and, when an API key is
// configured, the pass 2 scorer.
func newPipeline() (*pipeline, error) {
	tax := taxonomy.Ecommerce()

	engine, err := guardrail.NewDefaultEngine(tax, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to load guardrails: %w", err)
	}

	p := &pipeline{tax: tax, guardrails: engine}

	llmCfg, err := config.LoadLLMConfig(viper.GetViper())
	switch {
	case errors.Is(err, common.ErrMissingConfig):
		slog.Warn("No LLM API key configured, language model scoring disabled", "error", err)
		return p, nil
	case err != nil:
		return nil, err
	}

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	p.scorer = llm.NewScorer(client, tax, llmCfg, slog.Default())
	return p, nil
}

// Close releases the scorer cache.
func (p *pipeline) Close() {
	if p.scorer != nil {
		_ = p.scorer.Close()
	}
}

func newResolver(store orgconfig.Lookup) (*orgconfig.Resolver, error) {
	defaults, err := config.LoadCategorizationDefaults(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return orgconfig.NewResolver(store, defaults, slog.Default()), nil
}
