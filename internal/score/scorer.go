// Package score computes aggregate confidence for extraction results.
package score

import "github.com/itsarapong/satang/internal/model"

// Field weights for the aggregate score. Amount and category dominate
// because they decide whether a record is usable at all; payment method
// and description carry the least weight. Weights sum to 1.0.
const (
	weightAmount      = 0.35
	weightCategory    = 0.25
	weightMerchant    = 0.20
	weightCurrency    = 0.10
	weightPayment     = 0.05
	weightDescription = 0.05
)

// Aggregate combines per-field confidences into a single score in [0,1]
// using the fixed weight table above. Unset fields contribute their
// placeholder confidence, so gaps pull the aggregate down.
func Aggregate(r model.ExtractionResult) float64 {
	sum := r.Amount.Confidence*weightAmount +
		r.Category.Confidence*weightCategory +
		r.Merchant.Confidence*weightMerchant +
		r.Currency.Confidence*weightCurrency +
		r.PaymentMethod.Confidence*weightPayment +
		r.Description.Confidence*weightDescription

	return Clamp(sum)
}

// Clamp bounds a confidence score to [0,1].
func Clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
