package llm

import (
	"fmt"
	"strings"

	"github.com/itsarapong/satang/internal/model"
)

// buildExtractionPrompt creates the prompt asking the model to recover
// transaction fields the local patterns missed or got wrong. The locally
// extracted reading is included so the model corrects rather than
// starts over.
func buildExtractionPrompt(in model.TextInput, local model.ExtractionResult, categories []string) string {
	categoryList := ""
	for _, cat := range categories {
		categoryList += fmt.Sprintf("- %s\n", cat)
	}
	if categoryList == "" {
		categoryList = "- Uncategorized\n"
	}

	var localReading strings.Builder
	fmt.Fprintf(&localReading, "amount: %.2f %s (confidence %.2f)\n",
		local.Amount.Value, local.Currency.Value, local.Amount.Confidence)
	fmt.Fprintf(&localReading, "merchant: %s (confidence %.2f)\n",
		local.Merchant.Value, local.Merchant.Confidence)
	fmt.Fprintf(&localReading, "category: %s (confidence %.2f)\n",
		local.Category.Value, local.Category.Confidence)
	fmt.Fprintf(&localReading, "payment method: %s (confidence %.2f)",
		local.PaymentMethod.Value, local.PaymentMethod.Confidence)

	languageNote := ""
	if local.Language == model.LanguageThai {
		languageNote = "\nThe input is Thai. Thai numerals (๐-๙) are digits, and บาท means baht (THB)."
	}

	return fmt.Sprintf(`Extract the financial transaction described in this text. The text may be English or Thai.%s

Input text:
%s

A pattern-based pass already produced this reading. Correct any field it got wrong and fill in what it missed. Keep fields it read correctly.

Current reading:
%s

Known categories (prefer one of these; only invent a new name when nothing fits):
%s
Respond with a JSON object in exactly this shape:
{
  "merchant": "<merchant or shop name, or empty if none>",
  "merchant_confidence": <0.0-1.0>,
  "category": "<spending category>",
  "category_confidence": <0.0-1.0>,
  "amount": <numeric amount>,
  "amount_confidence": <0.0-1.0>,
  "currency": "<ISO 4217 code such as THB or USD>",
  "payment_method": "<cash|card|transfer|promptpay|unknown>",
  "description": "<short cleaned-up description of the purchase>",
  "confidence": <0.0-1.0 overall confidence in this reading>
}`,
		languageNote,
		in.Text,
		localReading.String(),
		categoryList)
}
