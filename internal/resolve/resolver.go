// Package resolve applies the mapping vocabulary to raw extractions,
// turning keyword and merchant guesses into canonical categories and
// merchant names.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/extract"
	"github.com/itsarapong/satang/internal/lang"
	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/score"
	"github.com/itsarapong/satang/internal/service"
)

// fuzzyTokenBudget caps how many tokens get a fuzzy vocabulary pass.
// Exact and alias lookups are cheap; fuzzy scoring is not.
const fuzzyTokenBudget = 8

// Config holds the tuning knobs for mapping resolution.
type Config struct {
	// FuzzyThreshold is the minimum similarity for a fuzzy vocabulary hit.
	FuzzyThreshold float64
	// StoreTimeout bounds all store reads for one resolution.
	StoreTimeout time.Duration
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold: 0.8,
		StoreTimeout:   time.Second,
	}
}

// Resolver looks up extracted tokens in the mapping store. A store
// outage never fails a resolution; the extractor's own reading survives
// with defaults applied.
type Resolver struct {
	store  service.MappingStore
	logger *slog.Logger
	cfg    Config
}

// New creates a resolver. A nil store is allowed and resolves everything
// to the extractor's reading plus defaults.
func New(store service.MappingStore, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		cfg.FuzzyThreshold = DefaultConfig().FuzzyThreshold
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultConfig().StoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cfg: cfg, logger: logger}
}

// Resolve upgrades result's merchant and category using the vocabulary:
// exact key, then alias, then fuzzy match, keeping the extractor's guess
// when the vocabulary has nothing better. Fields that were never
// resolved fall back to Unknown and Uncategorized with mapping
// provenance.
func (r *Resolver) Resolve(ctx context.Context, result model.ExtractionResult) (model.ExtractionResult, error) {
	if r.store == nil {
		return applyDefaults(result), nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	resolved, err := r.applyMappings(storeCtx, result)
	if err != nil {
		if ctx.Err() != nil {
			return model.ExtractionResult{}, ctx.Err()
		}
		r.logger.Warn("mapping store unavailable, continuing without vocabulary",
			"error", err)
		return applyDefaults(result), nil
	}

	return applyDefaults(resolved), nil
}

func (r *Resolver) applyMappings(ctx context.Context, result model.ExtractionResult) (model.ExtractionResult, error) {
	language := result.Language

	// Merchant first: a merchant hit canonicalizes the name and usually
	// pins the category too.
	if result.Merchant.Set() && result.Merchant.Value != extract.UnknownMerchant {
		token := lang.Normalize(result.Merchant.Value)
		mapping, similarity, err := r.lookup(ctx, model.KindMerchant, token, language)
		switch {
		case err == nil:
			confidence := score.Clamp(mapping.Confidence * similarity)
			if mapping.TargetMerchant != "" && confidence >= result.Merchant.Confidence {
				result.Merchant = model.Field[string]{Value: mapping.TargetMerchant, Confidence: confidence, Source: model.SourceMapping}
			}
			if confidence >= result.Category.Confidence {
				result.Category = model.Field[string]{Value: mapping.TargetCategory, Confidence: confidence, Source: model.SourceMapping}
			}
			r.recordHit(ctx, mapping.ID)
		case errors.Is(err, common.ErrNotFound):
			// Keep the extractor's guess.
		default:
			return model.ExtractionResult{}, err
		}
	}

	// Keyword vocabulary for the category.
	mapping, similarity, err := r.bestKeyword(ctx, result, language)
	switch {
	case err == nil:
		confidence := score.Clamp(mapping.Confidence * similarity)
		if confidence >= result.Category.Confidence {
			result.Category = model.Field[string]{Value: mapping.TargetCategory, Confidence: confidence, Source: model.SourceMapping}
			r.recordHit(ctx, mapping.ID)
		}
	case errors.Is(err, common.ErrNotFound):
	default:
		return model.ExtractionResult{}, err
	}

	return result, nil
}

// lookup runs the ladder for one token: exact or alias first, fuzzy
// second. The returned similarity is 1.0 for exact and alias hits.
func (r *Resolver) lookup(ctx context.Context, kind model.MappingKind, token string, language model.Language) (*model.CategoryMapping, float64, error) {
	mapping, err := r.store.FindMapping(ctx, kind, token, language)
	if err == nil {
		return mapping, 1.0, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrMappingStoreUnavailable, err)
	}

	mapping, similarity, err := r.store.FindFuzzy(ctx, kind, token, language, r.cfg.FuzzyThreshold)
	if err == nil {
		return mapping, similarity, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrMappingStoreUnavailable, err)
	}

	return nil, 0, common.ErrNotFound
}

// bestKeyword scans the input tokens for the strongest keyword mapping.
// All tokens get the exact and alias ladder; only the first few get the
// fuzzy pass.
func (r *Resolver) bestKeyword(ctx context.Context, result model.ExtractionResult, language model.Language) (*model.CategoryMapping, float64, error) {
	var best *model.CategoryMapping
	var bestSimilarity, bestConfidence float64

	fuzzyBudget := fuzzyTokenBudget
	for _, token := range lang.Tokens(result.Description.Value) {
		if len(token) == 0 || isNumeric(token) || utf8.RuneCountInString(token) < 2 {
			continue
		}

		mapping, err := r.store.FindMapping(ctx, model.KindKeyword, token, language)
		similarity := 1.0
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				return nil, 0, fmt.Errorf("%w: %v", common.ErrMappingStoreUnavailable, err)
			}
			if fuzzyBudget <= 0 || utf8.RuneCountInString(token) < 3 {
				continue
			}
			fuzzyBudget--
			mapping, similarity, err = r.store.FindFuzzy(ctx, model.KindKeyword, token, language, r.cfg.FuzzyThreshold)
			if err != nil {
				if !errors.Is(err, common.ErrNotFound) {
					return nil, 0, fmt.Errorf("%w: %v", common.ErrMappingStoreUnavailable, err)
				}
				continue
			}
		}

		confidence := mapping.Confidence * similarity
		if best == nil || confidence > bestConfidence ||
			(confidence == bestConfidence && mapping.UseCount > best.UseCount) {
			best = mapping
			bestSimilarity = similarity
			bestConfidence = confidence
		}
	}

	if best == nil {
		return nil, 0, common.ErrNotFound
	}
	return best, bestSimilarity, nil
}

// recordHit bumps a used mapping's counter. Failures only log; counting
// is not worth failing a resolution over.
func (r *Resolver) recordHit(ctx context.Context, mappingID string) {
	if err := r.store.IncrementUsage(ctx, mappingID); err != nil {
		r.logger.Debug("failed to increment mapping usage",
			"mapping_id", mappingID,
			"error", err)
	}
}

// ProposeCandidates records vocabulary candidates from a confident final
// result: merchants the store has never seen, and keywords the model
// supplied a category for. Runs after the pipeline settles so candidate
// confidence reflects the final reading.
func (r *Resolver) ProposeCandidates(ctx context.Context, result model.ExtractionResult) {
	if r.store == nil {
		return
	}
	if result.Category.Value == "" || result.Category.Value == extract.UncategorizedCategory {
		return
	}
	if result.Confidence < model.MediumConfidenceFloor {
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	if result.Merchant.Set() &&
		result.Merchant.Value != extract.UnknownMerchant &&
		result.Merchant.Source != model.SourceMapping {
		r.propose(storeCtx, &model.MappingCandidate{
			Kind:              model.KindMerchant,
			Key:               lang.Normalize(result.Merchant.Value),
			Language:          result.Language,
			SuggestedCategory: result.Category.Value,
			AvgConfidence:     result.Confidence,
		})
	}

	// When the model named the category, remember the most distinctive
	// token so the vocabulary can take over next time.
	if result.Category.Source == model.SourceAI {
		if token := salientToken(result.Description.Value); token != "" {
			r.propose(storeCtx, &model.MappingCandidate{
				Kind:              model.KindKeyword,
				Key:               token,
				Language:          result.Language,
				SuggestedCategory: result.Category.Value,
				AvgConfidence:     result.Confidence,
			})
		}
	}
}

func (r *Resolver) propose(ctx context.Context, candidate *model.MappingCandidate) {
	if err := r.store.RecordCandidate(ctx, candidate); err != nil {
		r.logger.Debug("failed to record mapping candidate",
			"key", candidate.Key,
			"kind", candidate.Kind,
			"error", err)
		return
	}
	r.logger.Debug("recorded mapping candidate",
		"key", candidate.Key,
		"kind", candidate.Kind,
		"category", candidate.SuggestedCategory)
}

// salientToken picks the longest non-numeric token as the candidate
// keyword. Longer tokens carry more meaning in both English and Thai.
func salientToken(text string) string {
	var best string
	var bestLen int
	for _, token := range lang.Tokens(text) {
		if isNumeric(token) {
			continue
		}
		if n := utf8.RuneCountInString(token); n >= 3 && n > bestLen {
			best = token
			bestLen = n
		}
	}
	return best
}

// isNumeric covers Thai numerals too, matching the tokenizer's notion
// of a digit run.
func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// applyDefaults fills unresolved merchant and category placeholders with
// the standing defaults, tagged with mapping provenance.
func applyDefaults(result model.ExtractionResult) model.ExtractionResult {
	if result.Merchant.Value == "" || result.Merchant.Value == extract.UnknownMerchant {
		result.Merchant = model.Field[string]{
			Value:      extract.UnknownMerchant,
			Confidence: result.Merchant.Confidence,
			Source:     model.SourceMapping,
		}
	}
	if result.Category.Value == "" || result.Category.Value == extract.UncategorizedCategory {
		result.Category = model.Field[string]{
			Value:      extract.UncategorizedCategory,
			Confidence: result.Category.Confidence,
			Source:     model.SourceMapping,
		}
	}
	return result
}
