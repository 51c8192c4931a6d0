package engine

import (
	"context"

	"github.com/itsarapong/satang/internal/model"
)

// Extractor produces the deterministic first-pass reading of an input.
type Extractor interface {
	Extract(ctx context.Context, in model.TextInput) (model.ExtractionResult, error)
}

// Resolver applies the mapping vocabulary to a reading and proposes new
// vocabulary from settled results.
type Resolver interface {
	Resolve(ctx context.Context, result model.ExtractionResult) (model.ExtractionResult, error)
	ProposeCandidates(ctx context.Context, result model.ExtractionResult)
}

// Arbitrator escalates an ambiguous reading to a language model.
type Arbitrator interface {
	Enhance(ctx context.Context, in model.TextInput, local model.ExtractionResult, categories []string) (model.ExtractionResult, error)
}

// ResultCache serves near-identical repeats without recomputation and
// guarantees a single in-flight computation per input cluster.
type ResultCache interface {
	GetOrCompute(ctx context.Context, text string, compute func(context.Context) (model.ExtractionResult, error)) (model.ExtractionResult, error)
}

// CategorySource lists the category names offered to the language model.
type CategorySource interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
}
