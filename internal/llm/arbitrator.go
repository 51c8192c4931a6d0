package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/score"
	"github.com/itsarapong/satang/internal/service"
)

// Arbitrator escalates low-confidence extractions to a language model
// and merges the model's answer with the local reading. Each provider
// call runs under its own timeout so one slow request cannot stall the
// pipeline past the configured budget.
type Arbitrator struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
	timeout     time.Duration
}

// NewArbitrator creates an arbitrator backed by the configured provider.
func NewArbitrator(cfg Config, logger *slog.Logger) (*Arbitrator, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewArbitratorWithClient(client, cfg, logger), nil
}

// NewArbitratorWithClient wires an arbitrator around an existing client.
// Tests use it to substitute a fake provider.
func NewArbitratorWithClient(client Client, cfg Config, logger *slog.Logger) *Arbitrator {
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = 500 * time.Millisecond
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Arbitrator{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		timeout:     timeout,
	}
}

// Enhance sends the input and the local reading to the model and merges
// the two. On any failure (timeout, exhausted retries, unparseable
// response) the error wraps ErrAIFallbackUnavailable so the caller can
// degrade to the local result.
func (a *Arbitrator) Enhance(ctx context.Context, in model.TextInput, local model.ExtractionResult, categories []string) (model.ExtractionResult, error) {
	if err := a.rateLimiter.wait(ctx); err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %v", common.ErrAIFallbackUnavailable, err)
	}

	prompt := buildExtractionPrompt(in, local, categories)

	var response ExtractionResponse
	err := common.WithRetry(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		resp, err := a.client.Extract(attemptCtx, prompt)
		if err != nil {
			a.logger.Warn("model extraction attempt failed",
				"error", err,
				"language", local.Language)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		response = resp
		return nil
	}, a.retryOpts)
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %v", common.ErrAIFallbackUnavailable, err)
	}

	merged := merge(local, response)

	a.logger.Info("model enhanced extraction",
		"merchant", merged.Merchant.Value,
		"category", merged.Category.Value,
		"amount", merged.Amount.Value,
		"confidence", merged.Confidence)

	return merged, nil
}

// Close stops background goroutines.
func (a *Arbitrator) Close() error {
	if a.rateLimiter != nil {
		a.rateLimiter.Close()
	}
	return nil
}

// merge resolves each field between the local reading and the model's
// answer. The more confident side wins per field, so the model can never
// replace a value with a less certain one. The merged confidence is
// floored at both the local aggregate and the model's overall
// confidence, which means a successful escalation only ever improves
// the result.
func merge(local model.ExtractionResult, ai ExtractionResponse) model.ExtractionResult {
	merged := local
	merged.Method = model.MethodAIFallback

	if ai.Amount > 0 && ai.AmountConfidence > merged.Amount.Confidence {
		merged.Amount = model.Field[float64]{Value: ai.Amount, Confidence: ai.AmountConfidence, Source: model.SourceAI}
	}
	if ai.Currency != "" && ai.AmountConfidence > merged.Currency.Confidence {
		merged.Currency = model.Field[string]{Value: ai.Currency, Confidence: ai.AmountConfidence, Source: model.SourceAI}
	}
	if ai.Merchant != "" && ai.MerchantConfidence > merged.Merchant.Confidence {
		merged.Merchant = model.Field[string]{Value: ai.Merchant, Confidence: ai.MerchantConfidence, Source: model.SourceAI}
	}
	if ai.Category != "" && ai.CategoryConfidence > merged.Category.Confidence {
		merged.Category = model.Field[string]{Value: ai.Category, Confidence: ai.CategoryConfidence, Source: model.SourceAI}
	}
	if pm := model.PaymentMethod(ai.PaymentMethod); pm.Valid() && pm != model.PaymentUnknown && ai.Confidence > merged.PaymentMethod.Confidence {
		merged.PaymentMethod = model.Field[model.PaymentMethod]{Value: pm, Confidence: ai.Confidence, Source: model.SourceAI}
	}
	if ai.Description != "" && ai.Confidence > merged.Description.Confidence {
		merged.Description = model.Field[string]{Value: ai.Description, Confidence: ai.Confidence, Source: model.SourceAI}
	}

	merged.Confidence = score.Clamp(max(score.Aggregate(merged), local.Confidence, ai.Confidence))
	return merged
}
