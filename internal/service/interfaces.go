// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/itsarapong/satang/internal/model"
)

// MappingFilter defines filtering options for mapping queries.
type MappingFilter struct {
	Language model.Language
	Kind     model.MappingKind
	Status   model.MappingStatus
	Limit    int
}

// MappingStore defines the contract for the mapping vocabulary persistence
// layer. Implementations must be safe for concurrent use; usage-counter
// increments must be single atomic operations.
type MappingStore interface {
	// Mapping operations
	FindMapping(ctx context.Context, kind model.MappingKind, key string, lang model.Language) (*model.CategoryMapping, error)
	FindFuzzy(ctx context.Context, kind model.MappingKind, token string, lang model.Language, threshold float64) (*model.CategoryMapping, float64, error)
	SaveMapping(ctx context.Context, mapping *model.CategoryMapping) error
	DeprecateMapping(ctx context.Context, kind model.MappingKind, key string, lang model.Language) error
	ListMappings(ctx context.Context, filter MappingFilter) ([]model.CategoryMapping, error)
	IncrementUsage(ctx context.Context, mappingID string) error
	RecordUse(ctx context.Context, mappingID string, success bool) error

	// Candidate operations
	RecordCandidate(ctx context.Context, candidate *model.MappingCandidate) error
	ListCandidates(ctx context.Context, status model.CandidateStatus) ([]model.MappingCandidate, error)
	ApproveCandidate(ctx context.Context, candidateID string) error
	RejectCandidate(ctx context.Context, candidateID string) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
