package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	Extract(ctx context.Context, prompt string) (ExtractionResponse, error)
}

// Config holds configuration for the AI fallback arbitrator.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// ExtractionResponse contains the fields the model recovered from the
// transaction text, each with its own confidence, plus the model's
// overall confidence in the whole reading.
type ExtractionResponse struct {
	Merchant           string
	Category           string
	Currency           string
	PaymentMethod      string
	Description        string
	Amount             float64
	AmountConfidence   float64
	MerchantConfidence float64
	CategoryConfidence float64
	Confidence         float64
}
