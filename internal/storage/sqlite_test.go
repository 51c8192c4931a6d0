package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsarapong/satang/internal/model"
)

// newTestStore creates a migrated store on a throwaway database.
func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create storage")

	require.NoError(t, store.Migrate(context.Background()), "failed to migrate")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyString)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)

		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}

func TestStoragePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "satang.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	mapping := &model.CategoryMapping{
		Kind:           model.KindKeyword,
		Key:            "boba",
		Language:       model.LanguageEnglish,
		TargetCategory: "Food & Dining",
		Confidence:     0.8,
	}
	require.NoError(t, store.SaveMapping(ctx, mapping))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(ctx))

	found, err := reopened.FindMapping(ctx, model.KindKeyword, "boba", model.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, mapping.ID, found.ID)
	assert.Equal(t, "Food & Dining", found.TargetCategory)
}
