package model

import (
	"fmt"
	"time"
)

// MappingKind distinguishes what a mapping key refers to.
type MappingKind string

const (
	// KindKeyword maps a spending keyword (coffee, กาแฟ) to a category.
	KindKeyword MappingKind = "keyword"
	// KindMerchant maps a merchant token to a canonical merchant name
	// and its usual category.
	KindMerchant MappingKind = "merchant"
)

// MappingStatus tracks the lifecycle of a mapping.
type MappingStatus string

const (
	// MappingActive marks the mapping currently used for resolution.
	MappingActive MappingStatus = "active"
	// MappingDeprecated marks mappings superseded by a newer entry.
	MappingDeprecated MappingStatus = "deprecated"
)

// CategoryMapping associates a keyword or merchant token with a normalized
// category. Within one (kind, key, language) at most one mapping is active;
// saving a conflicting mapping deprecates the older row.
type CategoryMapping struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ID             string
	Kind           MappingKind
	Key            string
	Language       Language
	TargetCategory string
	TargetMerchant string
	Status         MappingStatus
	Aliases        []string
	Confidence     float64
	SuccessRate    float64
	UseCount       int64
}

// Validate checks mapping integrity before persistence.
func (m *CategoryMapping) Validate() error {
	if m.Key == "" {
		return fmt.Errorf("mapping key cannot be empty")
	}
	if m.TargetCategory == "" {
		return fmt.Errorf("mapping target category cannot be empty")
	}
	switch m.Kind {
	case KindKeyword, KindMerchant:
	default:
		return fmt.Errorf("invalid mapping kind %q", m.Kind)
	}
	switch m.Language {
	case LanguageEnglish, LanguageThai:
	default:
		return fmt.Errorf("invalid mapping language %q", m.Language)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("mapping confidence %f out of range", m.Confidence)
	}
	return nil
}

// CandidateStatus tracks the review state of a proposed mapping.
type CandidateStatus string

const (
	// CandidatePending awaits review or auto-promotion.
	CandidatePending CandidateStatus = "pending"
	// CandidateApproved has been promoted to an active mapping.
	CandidateApproved CandidateStatus = "approved"
	// CandidateRejected was declined by a reviewer.
	CandidateRejected CandidateStatus = "rejected"
)

// MappingCandidate is a mapping proposed by the resolver when a confident
// extraction found no existing vocabulary entry. Candidates accumulate
// occurrences until promoted or rejected.
type MappingCandidate struct {
	FirstSeen         time.Time
	LastSeen          time.Time
	ID                string
	Kind              MappingKind
	Key               string
	Language          Language
	SuggestedCategory string
	Status            CandidateStatus
	AvgConfidence     float64
	Occurrences       int
}

// Category represents a canonical spending category.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	ID          int
	IsActive    bool
}
