package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/itsarapong/satang/internal/cache"
	"github.com/itsarapong/satang/internal/config"
	"github.com/itsarapong/satang/internal/engine"
	"github.com/itsarapong/satang/internal/extract"
	"github.com/itsarapong/satang/internal/resolve"
	"github.com/itsarapong/satang/internal/storage"
)

// openStorage initializes the mapping store with migrations applied.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("db.path"))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store.SetPromotionPolicy(viper.GetInt("mappings.promote_after"), 0)
	store.SetAutoPromote(viper.GetBool("mappings.auto_promote"))

	return store, nil
}

// pipelineOptions carries per-command overrides for pipeline construction.
type pipelineOptions struct {
	noCache bool
	noAI    bool
	workers int
}

// buildPipeline wires the full extraction pipeline from configuration.
// The returned cleanup function releases the store, cache, and LLM client.
// A store or LLM that cannot be set up is logged and left out; the
// pipeline then runs in degraded form.
func buildPipeline(ctx context.Context, opts pipelineOptions) (*engine.Pipeline, func()) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Collaborators are assigned to the interface variables only when
	// construction succeeds, so a failed one stays a true nil.
	var (
		resolverStore  *storage.SQLiteStorage
		arbitrator     engine.Arbitrator
		resultCache    engine.ResultCache
		categorySource engine.CategorySource
	)

	store, err := openStorage(ctx)
	if err != nil {
		slog.Warn("mapping store unavailable, parsing without vocabulary", "error", err)
	} else {
		resolverStore = store
		categorySource = store
		cleanups = append(cleanups, func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("Failed to close database", "error", closeErr)
			}
		})
	}

	resolverCfg := resolve.Config{
		FuzzyThreshold: viper.GetFloat64("mappings.fuzzy_threshold"),
		StoreTimeout:   viper.GetDuration("mappings.store_timeout"),
	}
	var resolver *resolve.Resolver
	if resolverStore != nil {
		resolver = resolve.New(resolverStore, resolverCfg, slog.Default())
	} else {
		resolver = resolve.New(nil, resolverCfg, slog.Default())
	}

	if !opts.noAI && viper.GetBool("llm.enabled") {
		arb, arbErr := createArbitrator()
		if arbErr != nil {
			slog.Warn("AI fallback disabled", "reason", arbErr)
		} else {
			arbitrator = arb
			cleanups = append(cleanups, func() { _ = arb.Close() })
		}
	}

	if !opts.noCache && viper.GetBool("cache.enabled") {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.SimilarityThreshold = viper.GetFloat64("cache.similarity_threshold")
		cacheCfg.MaxEntries = viper.GetInt("cache.max_entries")
		cacheCfg.TTLAI = viper.GetDuration("cache.ttl_ai")
		cacheCfg.TTLLocal = viper.GetDuration("cache.ttl_local")

		c := cache.New(cacheCfg)
		resultCache = c
		cleanups = append(cleanups, c.Close)
	}

	engineCfg := engine.Config{
		EscalationThreshold: viper.GetFloat64("pipeline.escalation_threshold"),
		BatchConcurrency:    viper.GetInt("pipeline.workers"),
	}
	if opts.workers > 0 {
		engineCfg.BatchConcurrency = opts.workers
	}

	pipeline := engine.NewWithConfig(extract.New(), resolver, arbitrator, resultCache, categorySource, engineCfg)
	return pipeline, cleanup
}
