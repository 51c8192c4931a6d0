// Package engine orchestrates the extraction pipeline: deterministic
// patterns, then mapping vocabulary, then conditional AI escalation,
// all behind the similarity cache.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/score"
)

// Pipeline runs inputs through extraction, resolution, and escalation.
// Every stage after extraction degrades rather than fails: a dead store
// or model provider costs confidence, not answers.
type Pipeline struct {
	extractor  Extractor
	resolver   Resolver
	arbitrator Arbitrator
	cache      ResultCache
	categories CategorySource
	cfg        Config
}

// Config holds configuration options for the pipeline.
type Config struct {
	// EscalationThreshold is the aggregate confidence below which a
	// local reading is sent to the language model.
	EscalationThreshold float64
	// BatchConcurrency caps how many inputs a batch processes at once.
	BatchConcurrency int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		EscalationThreshold: 0.6,
		BatchConcurrency:    4,
	}
}

// New creates a pipeline with the default configuration. The arbitrator,
// cache, and category source may be nil; the pipeline then runs locally
// without escalation or caching.
func New(extractor Extractor, resolver Resolver, arbitrator Arbitrator, cache ResultCache, categories CategorySource) *Pipeline {
	return NewWithConfig(extractor, resolver, arbitrator, cache, categories, DefaultConfig())
}

// NewWithConfig creates a pipeline with custom configuration.
func NewWithConfig(extractor Extractor, resolver Resolver, arbitrator Arbitrator, cache ResultCache, categories CategorySource, config Config) *Pipeline {
	if config.EscalationThreshold <= 0 || config.EscalationThreshold > 1 {
		config.EscalationThreshold = DefaultConfig().EscalationThreshold
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = DefaultConfig().BatchConcurrency
	}
	return &Pipeline{
		extractor:  extractor,
		resolver:   resolver,
		arbitrator: arbitrator,
		cache:      cache,
		categories: categories,
		cfg:        config,
	}
}

// Process turns one natural-language spending message into a structured
// result. Identical and near-identical repeats are served from the
// cache; concurrent repeats share one computation.
func (p *Pipeline) Process(ctx context.Context, in model.TextInput) (model.ExtractionResult, error) {
	if err := in.Validate(); err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %v", common.ErrUnparsableInput, err)
	}

	if p.cache == nil {
		return p.process(ctx, in)
	}

	return p.cache.GetOrCompute(ctx, in.Text, func(ctx context.Context) (model.ExtractionResult, error) {
		return p.process(ctx, in)
	})
}

func (p *Pipeline) process(ctx context.Context, in model.TextInput) (model.ExtractionResult, error) {
	started := time.Now()

	local, err := p.extractor.Extract(ctx, in)
	if err != nil {
		return model.ExtractionResult{}, err
	}

	resolved, err := p.resolver.Resolve(ctx, local)
	if err != nil {
		return model.ExtractionResult{}, err
	}
	resolved.Confidence = score.Aggregate(resolved)

	result := resolved
	if resolved.Confidence < p.cfg.EscalationThreshold && p.arbitrator != nil {
		enhanced, enhanceErr := p.arbitrator.Enhance(ctx, in, resolved, p.categoryNames(ctx))
		switch {
		case enhanceErr == nil:
			result = enhanced
		case ctx.Err() != nil:
			return model.ExtractionResult{}, ctx.Err()
		default:
			slog.Warn("AI fallback unavailable, keeping local result",
				"confidence", resolved.Confidence,
				"error", enhanceErr)
		}
	}

	p.resolver.ProposeCandidates(ctx, result)

	slog.Debug("processed input",
		"language", result.Language,
		"method", result.Method,
		"confidence", result.Confidence,
		"duration", time.Since(started))

	return result, nil
}

// categoryNames loads the category vocabulary offered to the model.
// Escalation still works with an empty list.
func (p *Pipeline) categoryNames(ctx context.Context) []string {
	if p.categories == nil {
		return nil
	}

	categories, err := p.categories.GetCategories(ctx)
	if err != nil {
		slog.Warn("failed to load categories for escalation", "error", err)
		return nil
	}

	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.Name
	}
	return names
}

// BatchItem pairs one batch input with its outcome.
type BatchItem struct {
	Err    error
	Input  model.TextInput
	Result model.ExtractionResult
}

// ProcessBatch processes inputs concurrently, preserving order. One bad
// input does not abort the batch; its item carries the error instead.
// progress, if non-nil, is called with the completed count after each item.
// On cancellation the items completed so far are still returned alongside
// the context error.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []model.TextInput, progress func(completed int)) ([]BatchItem, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	items := make([]BatchItem, len(inputs))

	var completed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.BatchConcurrency)

	for i, in := range inputs {
		i, in := i, in // per-iteration copies; go directive predates 1.22 loopvar semantics
		g.Go(func() error {
			result, err := p.Process(gctx, in)
			items[i] = BatchItem{Input: in, Result: result, Err: err}
			if progress != nil {
				progress(int(completed.Add(1)))
			}
			return nil
		})
	}

	_ = g.Wait() // workers never return errors; item errors live in the slice
	return items, ctx.Err()
}
