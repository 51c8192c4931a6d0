// Package testutil provides test helpers backed by a real in-memory
// mapping store.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/storage"
)

// TestDB wraps a migrated in-memory mapping store for one test.
type TestDB struct {
	Store *storage.SQLiteStorage
	t     *testing.T
}

// SetupTestDB creates an in-memory store with migrations applied, so the
// seeded categories and default vocabulary are present. Cleanup is
// registered with the test.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Errorf("failed to close test database: %v", closeErr)
		}
	})

	return &TestDB{
		Store: store,
		t:     t,
	}
}

// SeedMapping persists a mapping, filling in defaults for zero fields, and
// returns the stored value. Fails the test on error.
func (db *TestDB) SeedMapping(m model.CategoryMapping) model.CategoryMapping {
	db.t.Helper()

	if m.Kind == "" {
		m.Kind = model.KindKeyword
	}
	if m.Language == "" {
		m.Language = model.LanguageEnglish
	}
	if m.TargetCategory == "" {
		m.TargetCategory = "Uncategorized"
	}
	if m.Confidence == 0 {
		m.Confidence = 0.9
	}

	if err := db.Store.SaveMapping(context.Background(), &m); err != nil {
		db.t.Fatalf("failed to seed mapping %q: %v", m.Key, err)
	}
	return m
}

// SeedCandidate records a candidate sighting. Fails the test on error.
func (db *TestDB) SeedCandidate(c model.MappingCandidate) {
	db.t.Helper()

	if c.Kind == "" {
		c.Kind = model.KindKeyword
	}
	if c.Language == "" {
		c.Language = model.LanguageEnglish
	}

	if err := db.Store.RecordCandidate(context.Background(), &c); err != nil {
		db.t.Fatalf("failed to seed candidate %q: %v", c.Key, err)
	}
}

// MustFindMapping looks up an active mapping or fails the test.
func (db *TestDB) MustFindMapping(kind model.MappingKind, key string, language model.Language) *model.CategoryMapping {
	db.t.Helper()

	mapping, err := db.Store.FindMapping(context.Background(), kind, key, language)
	if err != nil {
		db.t.Fatalf("failed to find mapping %q: %v", key, err)
	}
	return mapping
}

// Context returns a context with a deadline suited to store calls in tests.
func (db *TestDB) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
