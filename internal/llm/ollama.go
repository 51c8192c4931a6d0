package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ollamaClient implements the Client interface for a local Ollama server.
type ollamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
}

// newOllamaClient creates a client for a local Ollama instance. No API
// key is needed.
func newOllamaClient(cfg Config) (Client, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	return &ollamaClient{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Extract sends an extraction request to Ollama.
func (c *ollamaClient) Extract(ctx context.Context, prompt string) (ExtractionResponse, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a financial transaction extractor for English and Thai text. Respond only with the requested JSON object, nothing else.",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": c.temperature,
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return ExtractionResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", strings.NewReader(string(jsonBody)))
	if err != nil {
		return ExtractionResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ExtractionResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ExtractionResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ExtractionResponse{}, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response ollamaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ExtractionResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if response.Message.Content == "" {
		return ExtractionResponse{}, fmt.Errorf("no content in response")
	}

	return parseExtraction(response.Message.Content)
}

// ollamaResponse represents the Ollama chat API response structure.
type ollamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done       bool  `json:"done"`
	TotalTime  int64 `json:"total_duration"`
	EvalCount  int   `json:"eval_count"`
	EvalTimeNS int64 `json:"eval_duration"`
}
