package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/model"
)

// Default promotion policy: a pending candidate becomes an active
// mapping once it has been seen this many times at this average
// confidence.
const (
	defaultPromoteAfter      = 3
	defaultPromoteConfidence = 0.8
)

// SetPromotionPolicy overrides the auto-promotion thresholds.
func (s *SQLiteStorage) SetPromotionPolicy(minOccurrences int, minConfidence float64) {
	if minOccurrences > 0 {
		s.promoteAfter = minOccurrences
	}
	if minConfidence > 0 && minConfidence <= 1 {
		s.promoteConfidence = minConfidence
	}
}

// SetAutoPromote toggles automatic promotion. When disabled, candidates
// accumulate until approved explicitly.
func (s *SQLiteStorage) SetAutoPromote(enabled bool) {
	s.autoPromote = enabled
}

// RecordCandidate folds one more sighting into a pending candidate,
// creating it on first sight. When the candidate crosses the promotion
// thresholds it is converted into an active mapping in the same
// transaction, so a crash can never leave a promoted candidate without
// its mapping.
func (s *SQLiteStorage) RecordCandidate(ctx context.Context, candidate *model.MappingCandidate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCandidate(candidate); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Fold into an existing pending row. The right-hand side reads the
	// pre-update occurrences, so the running average stays exact.
	result, err := tx.ExecContext(ctx, `
		UPDATE mapping_candidates
		SET occurrences = occurrences + 1,
			avg_confidence = (avg_confidence * occurrences + ?) / (occurrences + 1),
			suggested_category = ?,
			last_seen = CURRENT_TIMESTAMP
		WHERE kind = ? AND key = ? AND language = ? AND status = 'pending'
	`, candidate.AvgConfidence, candidate.SuggestedCategory,
		candidate.Kind, candidate.Key, candidate.Language)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if candidate.ID == "" {
			candidate.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO mapping_candidates
				(id, kind, key, language, suggested_category, status, occurrences, avg_confidence)
			VALUES (?, ?, ?, ?, ?, 'pending', 1, ?)
		`, candidate.ID, candidate.Kind, candidate.Key, candidate.Language,
			candidate.SuggestedCategory, candidate.AvgConfidence); err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
	}

	if err := s.maybePromoteTx(ctx, tx, candidate.Kind, candidate.Key, candidate.Language); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candidate: %w", err)
	}

	s.invalidateMappingCache()
	return nil
}

// maybePromoteTx promotes the pending candidate for (kind, key,
// language) if it has crossed the policy thresholds.
func (s *SQLiteStorage) maybePromoteTx(ctx context.Context, tx *sql.Tx, kind model.MappingKind, key string, language model.Language) error {
	if !s.autoPromote {
		return nil
	}

	promoteAfter := s.promoteAfter
	if promoteAfter <= 0 {
		promoteAfter = defaultPromoteAfter
	}
	promoteConfidence := s.promoteConfidence
	if promoteConfidence <= 0 {
		promoteConfidence = defaultPromoteConfidence
	}

	var (
		id          string
		category    string
		occurrences int
		avg         float64
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, suggested_category, occurrences, avg_confidence
		FROM mapping_candidates
		WHERE kind = ? AND key = ? AND language = ? AND status = 'pending'
	`, kind, key, language).Scan(&id, &category, &occurrences, &avg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check candidate for promotion: %w", err)
	}

	if occurrences < promoteAfter || avg < promoteConfidence {
		return nil
	}

	now := time.Now()
	mapping := &model.CategoryMapping{
		ID:             uuid.NewString(),
		Kind:           kind,
		Key:            key,
		Language:       language,
		TargetCategory: category,
		Status:         model.MappingActive,
		Confidence:     avg,
		SuccessRate:    1.0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.saveMappingTx(ctx, tx, mapping); err != nil {
		return fmt.Errorf("failed to promote candidate: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE mapping_candidates
		SET status = 'approved', last_seen = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id); err != nil {
		return fmt.Errorf("failed to mark candidate approved: %w", err)
	}

	slog.Info("promoted candidate to mapping",
		"key", key,
		"language", language,
		"category", category,
		"occurrences", occurrences,
		"avg_confidence", avg)

	return nil
}

// ListCandidates retrieves candidates in the given status, most seen
// first.
func (s *SQLiteStorage) ListCandidates(ctx context.Context, status model.CandidateStatus) ([]model.MappingCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, key, language, suggested_category, status,
			occurrences, avg_confidence, first_seen, last_seen
		FROM mapping_candidates
		WHERE status = ?
		ORDER BY occurrences DESC, last_seen DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.MappingCandidate
	for rows.Next() {
		var c model.MappingCandidate
		if err := rows.Scan(
			&c.ID, &c.Kind, &c.Key, &c.Language, &c.SuggestedCategory,
			&c.Status, &c.Occurrences, &c.AvgConfidence, &c.FirstSeen, &c.LastSeen,
		); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// ApproveCandidate promotes a pending candidate to an active mapping
// regardless of the auto-promotion thresholds.
func (s *SQLiteStorage) ApproveCandidate(ctx context.Context, candidateID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(candidateID, "candidateID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var c model.MappingCandidate
	err = tx.QueryRowContext(ctx, `
		SELECT id, kind, key, language, suggested_category, occurrences, avg_confidence
		FROM mapping_candidates
		WHERE id = ? AND status = 'pending'
	`, candidateID).Scan(
		&c.ID, &c.Kind, &c.Key, &c.Language, &c.SuggestedCategory,
		&c.Occurrences, &c.AvgConfidence,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load candidate: %w", err)
	}

	now := time.Now()
	mapping := &model.CategoryMapping{
		ID:             uuid.NewString(),
		Kind:           c.Kind,
		Key:            c.Key,
		Language:       c.Language,
		TargetCategory: c.SuggestedCategory,
		Status:         model.MappingActive,
		Confidence:     c.AvgConfidence,
		SuccessRate:    1.0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.saveMappingTx(ctx, tx, mapping); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE mapping_candidates
		SET status = 'approved', last_seen = CURRENT_TIMESTAMP
		WHERE id = ?
	`, candidateID); err != nil {
		return fmt.Errorf("failed to mark candidate approved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}

	s.invalidateMappingCache()
	return nil
}

// RejectCandidate declines a pending candidate. Rejected keys are kept
// so repeated sightings do not recreate them.
func (s *SQLiteStorage) RejectCandidate(ctx context.Context, candidateID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(candidateID, "candidateID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE mapping_candidates
		SET status = 'rejected', last_seen = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`, candidateID)
	if err != nil {
		return fmt.Errorf("failed to reject candidate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}
