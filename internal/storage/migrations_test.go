package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsarapong/satang/internal/lang"
	"github.com/itsarapong/satang/internal/model"
)

func TestMigrate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("reaches expected schema version", func(t *testing.T) {
		var version int
		require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
		assert.Equal(t, ExpectedSchemaVersion, version)
	})

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, store.Migrate(ctx))
		require.NoError(t, store.Migrate(ctx))
	})
}

func TestSeededVocabulary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("english keyword", func(t *testing.T) {
		mapping, err := store.FindMapping(ctx, model.KindKeyword, "coffee", model.LanguageEnglish)
		require.NoError(t, err)
		assert.Equal(t, "Food & Dining", mapping.TargetCategory)
		assert.InDelta(t, 0.85, mapping.Confidence, 0.001)
	})

	t.Run("thai keyword stored normalized", func(t *testing.T) {
		// Seeds are written the way the resolver looks them up, with
		// tone marks stripped.
		mapping, err := store.FindMapping(ctx, model.KindKeyword, lang.Normalize("แท็กซี่"), model.LanguageThai)
		require.NoError(t, err)
		assert.Equal(t, "Transportation", mapping.TargetCategory)
	})

	t.Run("merchant carries canonical name", func(t *testing.T) {
		mapping, err := store.FindMapping(ctx, model.KindMerchant, "starbucks", model.LanguageEnglish)
		require.NoError(t, err)
		assert.Equal(t, "Starbucks", mapping.TargetMerchant)
		assert.Equal(t, "Food & Dining", mapping.TargetCategory)
	})
}

func TestSeedDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Remove a seeded row behind the store's back.
	_, err := store.db.ExecContext(ctx, `DELETE FROM mappings WHERE key = 'coffee'`)
	require.NoError(t, err)

	var remaining int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mappings WHERE key = 'coffee'`).Scan(&remaining))
	require.Zero(t, remaining)

	require.NoError(t, store.SeedDefaults(ctx))

	mapping, err := store.FindMapping(ctx, model.KindKeyword, "coffee", model.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "Food & Dining", mapping.TargetCategory)
}

func TestSeedDefaultsKeepsUserRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// The user has remapped a seeded key; re-seeding must not undo that.
	custom := &model.CategoryMapping{
		Kind:           model.KindKeyword,
		Key:            "coffee",
		Language:       model.LanguageEnglish,
		TargetCategory: "Entertainment",
		Confidence:     0.9,
	}
	require.NoError(t, store.SaveMapping(ctx, custom))
	require.NoError(t, store.SeedDefaults(ctx))

	mapping, err := store.FindMapping(ctx, model.KindKeyword, "coffee", model.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "Entertainment", mapping.TargetCategory)
	assert.Equal(t, custom.ID, mapping.ID)
}
