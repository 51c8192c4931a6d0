package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanMarkdownWrapper strips code fences some models wrap around JSON
// despite being told not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// parseExtraction extracts transaction fields from the LLM response.
func parseExtraction(content string) (ExtractionResponse, error) {
	var jsonResp struct {
		Merchant           string  `json:"merchant"`
		Category           string  `json:"category"`
		Currency           string  `json:"currency"`
		PaymentMethod      string  `json:"payment_method"`
		Description        string  `json:"description"`
		Amount             float64 `json:"amount"`
		AmountConfidence   float64 `json:"amount_confidence"`
		MerchantConfidence float64 `json:"merchant_confidence"`
		CategoryConfidence float64 `json:"category_confidence"`
		Confidence         float64 `json:"confidence"`
	}

	content = cleanMarkdownWrapper(content)

	if err := json.Unmarshal([]byte(content), &jsonResp); err != nil {
		return ExtractionResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if jsonResp.Merchant == "" && jsonResp.Category == "" && jsonResp.Amount == 0 {
		return ExtractionResponse{}, fmt.Errorf("no usable fields in response")
	}

	return ExtractionResponse{
		Merchant:           jsonResp.Merchant,
		Category:           jsonResp.Category,
		Currency:           strings.ToUpper(jsonResp.Currency),
		PaymentMethod:      strings.ToLower(jsonResp.PaymentMethod),
		Description:        jsonResp.Description,
		Amount:             jsonResp.Amount,
		AmountConfidence:   clampScore(jsonResp.AmountConfidence),
		MerchantConfidence: clampScore(jsonResp.MerchantConfidence),
		CategoryConfidence: clampScore(jsonResp.CategoryConfidence),
		Confidence:         clampScore(jsonResp.Confidence),
	}, nil
}

func clampScore(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
