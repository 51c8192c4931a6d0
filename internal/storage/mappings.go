package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/lang"
	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/service"
)

const mappingColumns = `id, kind, key, language, target_category, target_merchant,
	aliases, status, confidence, use_count, success_rate, created_at, updated_at`

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(row scanner) (*model.CategoryMapping, error) {
	var mapping model.CategoryMapping
	var aliasesJSON string

	err := row.Scan(
		&mapping.ID,
		&mapping.Kind,
		&mapping.Key,
		&mapping.Language,
		&mapping.TargetCategory,
		&mapping.TargetMerchant,
		&aliasesJSON,
		&mapping.Status,
		&mapping.Confidence,
		&mapping.UseCount,
		&mapping.SuccessRate,
		&mapping.CreatedAt,
		&mapping.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if aliasesJSON != "" && aliasesJSON != "[]" {
		if err := json.Unmarshal([]byte(aliasesJSON), &mapping.Aliases); err != nil {
			return nil, fmt.Errorf("failed to decode aliases for mapping %s: %w", mapping.ID, err)
		}
	}

	return &mapping, nil
}

// FindMapping retrieves the active mapping whose key or alias equals key.
// Returns ErrNotFound when no active mapping matches.
func (s *SQLiteStorage) FindMapping(ctx context.Context, kind model.MappingKind, key string, language model.Language) (*model.CategoryMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}

	// Check cache first
	if mapping := s.getCachedMapping(cacheKey(kind, key, language)); mapping != nil {
		return mapping, nil
	}

	mapping, err := scanMapping(s.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+`
		FROM mappings
		WHERE kind = ? AND key = ? AND language = ? AND status = 'active'
	`, kind, key, language))
	if err == nil {
		s.cacheMapping(mapping)
		return mapping, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	// No exact key; try aliases.
	mapping, err = s.findByAlias(ctx, kind, key, language)
	if err != nil {
		return nil, err
	}

	s.cacheMapping(mapping)
	return mapping, nil
}

// findByAlias scans active mappings of the same kind and language for one
// listing key among its aliases. The alias table is small enough that a
// linear scan beats maintaining a separate index.
func (s *SQLiteStorage) findByAlias(ctx context.Context, kind model.MappingKind, key string, language model.Language) (*model.CategoryMapping, error) {
	mappings, err := s.listActive(ctx, kind, language)
	if err != nil {
		return nil, err
	}

	for i := range mappings {
		for _, alias := range mappings[i].Aliases {
			if alias == key {
				return &mappings[i], nil
			}
		}
	}

	return nil, fmt.Errorf("%w: mapping %q (%s/%s)", common.ErrNotFound, key, kind, language)
}

// FindFuzzy retrieves the active mapping most similar to token, along
// with the similarity score that matched it. Ties on similarity go to
// the more used mapping. Returns ErrNotFound when nothing clears the
// threshold.
func (s *SQLiteStorage) FindFuzzy(ctx context.Context, kind model.MappingKind, token string, language model.Language, threshold float64) (*model.CategoryMapping, float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, 0, err
	}
	if err := validateString(token, "token"); err != nil {
		return nil, 0, err
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, 0, err
	}

	mappings, err := s.listActive(ctx, kind, language)
	if err != nil {
		return nil, 0, err
	}

	var best *model.CategoryMapping
	var bestScore float64
	for i := range mappings {
		score := lang.Similarity(token, mappings[i].Key)
		for _, alias := range mappings[i].Aliases {
			if s := lang.Similarity(token, alias); s > score {
				score = s
			}
		}
		if score < threshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && mappings[i].UseCount > best.UseCount) {
			best = &mappings[i]
			bestScore = score
		}
	}

	if best == nil {
		return nil, 0, fmt.Errorf("%w: no mapping similar to %q (%s/%s)", common.ErrNotFound, token, kind, language)
	}

	return best, bestScore, nil
}

// listActive returns all active mappings of one kind and language.
func (s *SQLiteStorage) listActive(ctx context.Context, kind model.MappingKind, language model.Language) ([]model.CategoryMapping, error) {
	return s.ListMappings(ctx, service.MappingFilter{
		Kind:     kind,
		Language: language,
		Status:   model.MappingActive,
	})
}

// SaveMapping saves or updates a mapping. Saving a new mapping for an
// already-claimed (kind, key, language) deprecates the previous active
// row, so resolution always sees exactly one winner.
func (s *SQLiteStorage) SaveMapping(ctx context.Context, mapping *model.CategoryMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}

	now := time.Now()
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
		mapping.CreatedAt = now
	}
	if mapping.Status == "" {
		mapping.Status = model.MappingActive
	}
	mapping.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveMappingTx(ctx, tx, mapping); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mapping: %w", err)
	}

	s.invalidateMappingCache()
	return nil
}

func (s *SQLiteStorage) saveMappingTx(ctx context.Context, tx *sql.Tx, mapping *model.CategoryMapping) error {
	aliases, err := json.Marshal(mapping.Aliases)
	if err != nil {
		return fmt.Errorf("failed to encode aliases: %w", err)
	}

	// Validate category exists
	var categoryExists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM categories WHERE name = ? AND is_active = 1)
	`, mapping.TargetCategory).Scan(&categoryExists)
	if err != nil {
		return fmt.Errorf("failed to check category existence: %w", err)
	}
	if !categoryExists {
		return fmt.Errorf("category '%s' does not exist", mapping.TargetCategory)
	}

	if mapping.Status == model.MappingActive {
		if _, err = tx.ExecContext(ctx, `
			UPDATE mappings
			SET status = 'deprecated', updated_at = ?
			WHERE kind = ? AND key = ? AND language = ? AND status = 'active' AND id != ?
		`, mapping.UpdatedAt, mapping.Kind, mapping.Key, mapping.Language, mapping.ID); err != nil {
			return fmt.Errorf("failed to deprecate previous mapping: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mappings
			(id, kind, key, language, target_category, target_merchant, aliases,
			 status, confidence, use_count, success_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_category = excluded.target_category,
			target_merchant = excluded.target_merchant,
			aliases = excluded.aliases,
			status = excluded.status,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
	`, mapping.ID, mapping.Kind, mapping.Key, mapping.Language,
		mapping.TargetCategory, mapping.TargetMerchant, string(aliases),
		mapping.Status, mapping.Confidence, mapping.UseCount, mapping.SuccessRate,
		mapping.CreatedAt, mapping.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	return nil
}

// DeprecateMapping retires the active mapping for a key without
// replacing it.
func (s *SQLiteStorage) DeprecateMapping(ctx context.Context, kind model.MappingKind, key string, language model.Language) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE mappings
		SET status = 'deprecated', updated_at = ?
		WHERE kind = ? AND key = ? AND language = ? AND status = 'active'
	`, time.Now(), kind, key, language)
	if err != nil {
		return fmt.Errorf("failed to deprecate mapping: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	s.invalidateMappingCache()
	return nil
}

// ListMappings retrieves mappings matching the filter, most used first.
func (s *SQLiteStorage) ListMappings(ctx context.Context, filter service.MappingFilter) ([]model.CategoryMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + mappingColumns + ` FROM mappings WHERE 1=1`
	var args []any

	if filter.Language != "" {
		query += ` AND language = ?`
		args = append(args, filter.Language)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY use_count DESC, key`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.CategoryMapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, *mapping)
	}

	return mappings, rows.Err()
}

// IncrementUsage bumps a mapping's use count in a single statement, safe
// under concurrent resolution.
func (s *SQLiteStorage) IncrementUsage(ctx context.Context, mappingID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(mappingID, "mappingID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE mappings
		SET use_count = use_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, mappingID)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
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

// RecordUse bumps a mapping's use count and folds the outcome into its
// success rate, again as one atomic statement.
func (s *SQLiteStorage) RecordUse(ctx context.Context, mappingID string, success bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(mappingID, "mappingID"); err != nil {
		return err
	}

	successInc := 0
	if success {
		successInc = 1
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE mappings
		SET use_count = use_count + 1,
			success_count = success_count + ?,
			success_rate = CAST(success_count + ? AS REAL) / (use_count + 1),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, successInc, successInc, mappingID)
	if err != nil {
		return fmt.Errorf("failed to record use: %w", err)
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
