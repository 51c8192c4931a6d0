// Package storage provides the SQLite persistence layer for the mapping
// vocabulary, candidates, and categories.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/itsarapong/satang/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidMapping   = errors.New("invalid mapping")
	ErrInvalidCandidate = errors.New("invalid candidate")
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 1")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateMapping validates a mapping before persistence.
func validateMapping(mapping *model.CategoryMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	return nil
}

// validateCandidate validates a candidate before persistence.
func validateCandidate(candidate *model.MappingCandidate) error {
	if candidate == nil {
		return fmt.Errorf("%w: candidate", ErrNilParameter)
	}
	if strings.TrimSpace(candidate.Key) == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidCandidate)
	}
	if strings.TrimSpace(candidate.SuggestedCategory) == "" {
		return fmt.Errorf("%w: missing suggested category", ErrInvalidCandidate)
	}
	switch candidate.Kind {
	case model.KindKeyword, model.KindMerchant:
	default:
		return fmt.Errorf("%w: invalid kind %q", ErrInvalidCandidate, candidate.Kind)
	}
	switch candidate.Language {
	case model.LanguageEnglish, model.LanguageThai:
	default:
		return fmt.Errorf("%w: invalid language %q", ErrInvalidCandidate, candidate.Language)
	}
	if candidate.AvgConfidence < 0 || candidate.AvgConfidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidCandidate)
	}
	return nil
}

// validateThreshold ensures a similarity threshold is usable.
func validateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return ErrInvalidThreshold
	}
	return nil
}
