package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/itsarapong/satang/internal/llm"
)

// createArbitrator creates the AI fallback from configuration.
func createArbitrator() (*llm.Arbitrator, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "openai" // default provider
	}

	// Build config from viper settings
	config := llm.Config{
		Provider:    provider,
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.endpoint"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		MaxRetries:  viper.GetInt("llm.retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		Timeout:     viper.GetDuration("llm.timeout"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	}

	// Get API key based on provider
	switch provider {
	case "openai":
		// Check viper first, then environment variable
		apiKey := viper.GetString("llm.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
		config.APIKey = apiKey

	case "anthropic":
		// Check viper first, then environment variable
		apiKey := viper.GetString("llm.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic API key not found in config or ANTHROPIC_API_KEY environment variable")
		}
		config.APIKey = apiKey

	case "ollama":
		// Ollama runs locally and doesn't need an API key

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	arbitrator, err := llm.NewArbitrator(config, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM arbitrator: %w", err)
	}

	return arbitrator, nil
}
