package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/itsarapong/satang/internal/model"
)

// GetCategories returns all active categories.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, description, created_at, is_active
		FROM categories
		WHERE is_active = 1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt, &cat.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByName returns a category by its name, or nil if it does
// not exist.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, description, created_at, is_active
		FROM categories
		WHERE name = ? AND is_active = 1`

	var cat model.Category
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt, &cat.IsActive,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Category not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

// CreateCategory creates a new category, reactivating a previously
// deactivated one of the same name.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	// Check if category already exists (including inactive ones)
	existingQuery := `
		SELECT id, name, description, created_at, is_active
		FROM categories
		WHERE name = ?`

	var existing model.Category
	err := s.db.QueryRowContext(ctx, existingQuery, name).Scan(
		&existing.ID, &existing.Name, &existing.Description, &existing.CreatedAt, &existing.IsActive,
	)

	if err == nil {
		if !existing.IsActive {
			updateQuery := `UPDATE categories SET is_active = 1 WHERE id = ?`
			if _, err := s.db.ExecContext(ctx, updateQuery, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate category: %w", err)
			}
			existing.IsActive = true
			slog.Info("reactivated existing category", "name", name)
		}
		return &existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	insertQuery := `
		INSERT INTO categories (name, description, created_at, is_active)
		VALUES (?, ?, ?, 1)`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, insertQuery, name, description, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	category := &model.Category{
		ID:          int(id),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		IsActive:    true,
	}

	slog.Info("created new category", "name", name, "id", id)
	return category, nil
}
