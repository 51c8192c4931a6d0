// Package model defines the core domain types used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SchemaVersion tags every ExtractionResult with the revision of the result
// shape and rule tables that produced it.
const SchemaVersion = 1

// Language identifies the language of an input text.
type Language string

const (
	// LanguageEnglish selects the English rule tables.
	LanguageEnglish Language = "en"
	// LanguageThai selects the Thai rule tables.
	LanguageThai Language = "th"
	// LanguageAuto defers to script detection before rule selection.
	LanguageAuto Language = "auto"
)

// ProcessingMethod records which path produced a result.
type ProcessingMethod string

const (
	// MethodLocal indicates the deterministic extractor produced the result.
	MethodLocal ProcessingMethod = "local"
	// MethodAIFallback indicates the result was enhanced by the language model.
	MethodAIFallback ProcessingMethod = "ai-fallback"
	// MethodCacheHit indicates the result was served from the similarity cache.
	MethodCacheHit ProcessingMethod = "cache-hit"
)

// Provenance records which component produced an extracted field's value.
type Provenance string

const (
	// SourcePattern marks values produced by the rule-based extractor.
	SourcePattern Provenance = "pattern"
	// SourceAI marks values taken from the language-model response.
	SourceAI Provenance = "ai"
	// SourceMapping marks values supplied by the mapping resolver,
	// including the Uncategorized/Unknown defaults.
	SourceMapping Provenance = "mapping"
)

// PaymentMethod enumerates recognized payment instruments.
type PaymentMethod string

const (
	// PaymentCash covers cash keywords in any language.
	PaymentCash PaymentMethod = "cash"
	// PaymentCard covers credit and debit card keywords.
	PaymentCard PaymentMethod = "card"
	// PaymentTransfer covers bank transfer keywords.
	PaymentTransfer PaymentMethod = "transfer"
	// PaymentPromptPay covers the Thai PromptPay rail.
	PaymentPromptPay PaymentMethod = "promptpay"
	// PaymentUnknown is the placeholder when no keyword matched.
	PaymentUnknown PaymentMethod = "unknown"
)

// Valid reports whether p is one of the recognized payment methods.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentPromptPay, PaymentUnknown:
		return true
	default:
		return false
	}
}

// InputHints carries optional caller-supplied context for extraction.
type InputHints struct {
	PreviousCategory string
}

// TextInput is a single natural-language spending message to process.
// Treated as immutable once constructed.
type TextInput struct {
	Text     string
	Language Language
	Hints    InputHints
}

// Validate checks that the input is processable.
func (in TextInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("input text cannot be empty")
	}
	switch in.Language {
	case LanguageEnglish, LanguageThai, LanguageAuto, "":
		return nil
	default:
		return fmt.Errorf("unsupported language %q", in.Language)
	}
}

// Field pairs an extracted value with a confidence in [0,1] and the
// provenance of the component that produced it.
type Field[T any] struct {
	Value      T
	Confidence float64
	Source     Provenance
}

// Set reports whether any component populated the field.
func (f Field[T]) Set() bool {
	return f.Source != ""
}

// ExtractionResult is the structured spending record produced by the
// pipeline. It is never mutated after the pipeline returns it; cache hits
// return a copy differing only in Method.
type ExtractionResult struct {
	ProcessedAt   time.Time
	Merchant      Field[string]
	Category      Field[string]
	Currency      Field[string]
	Description   Field[string]
	Method        ProcessingMethod
	Language      Language
	PaymentMethod Field[PaymentMethod]
	Amount        Field[float64]
	Confidence    float64
	SchemaVersion int
}

// Level classifies the result's aggregate confidence.
func (r ExtractionResult) Level() ConfidenceLevel {
	return LevelFor(r.Confidence)
}
