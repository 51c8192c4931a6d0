package model

// ConfidenceLevel classifies an aggregate confidence score into a band.
type ConfidenceLevel string

const (
	// ConfidenceLow means the local extraction is not trustworthy on its own.
	ConfidenceLow ConfidenceLevel = "low"
	// ConfidenceMedium means the extraction is usable without enhancement.
	ConfidenceMedium ConfidenceLevel = "medium"
	// ConfidenceHigh means the extraction is reliable.
	ConfidenceHigh ConfidenceLevel = "high"
)

// Band boundaries for confidence classification.
const (
	MediumConfidenceFloor = 0.6
	HighConfidenceFloor   = 0.8
)

// LevelFor classifies a score into a confidence band.
func LevelFor(score float64) ConfidenceLevel {
	switch {
	case score >= HighConfidenceFloor:
		return ConfidenceHigh
	case score >= MediumConfidenceFloor:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
