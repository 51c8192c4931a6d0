package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/service"
)

func TestSaveAndFindMapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mapping := &model.CategoryMapping{
		Kind:           model.KindMerchant,
		Key:            "after you",
		Language:       model.LanguageEnglish,
		TargetCategory: "Food & Dining",
		TargetMerchant: "After You",
		Aliases:        []string{"after you dessert"},
		Confidence:     0.9,
	}
	require.NoError(t, store.SaveMapping(ctx, mapping))
	assert.NotEmpty(t, mapping.ID, "save assigns an ID")
	assert.Equal(t, model.MappingActive, mapping.Status, "save defaults status to active")

	t.Run("by key", func(t *testing.T) {
		found, err := store.FindMapping(ctx, model.KindMerchant, "after you", model.LanguageEnglish)
		require.NoError(t, err)
		assert.Equal(t, mapping.ID, found.ID)
		assert.Equal(t, "After You", found.TargetMerchant)
		assert.Equal(t, []string{"after you dessert"}, found.Aliases)
	})

	t.Run("by alias", func(t *testing.T) {
		found, err := store.FindMapping(ctx, model.KindMerchant, "after you dessert", model.LanguageEnglish)
		require.NoError(t, err)
		assert.Equal(t, mapping.ID, found.ID)
	})

	t.Run("wrong language misses", func(t *testing.T) {
		_, err := store.FindMapping(ctx, model.KindMerchant, "after you", model.LanguageThai)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("wrong kind misses", func(t *testing.T) {
		_, err := store.FindMapping(ctx, model.KindKeyword, "after you", model.LanguageEnglish)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestSaveMappingReplacesActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	replacement := &model.CategoryMapping{
		Kind:           model.KindKeyword,
		Key:            "coffee",
		Language:       model.LanguageEnglish,
		TargetCategory: "Entertainment",
		Confidence:     0.9,
	}
	require.NoError(t, store.SaveMapping(ctx, replacement))

	found, err := store.FindMapping(ctx, model.KindKeyword, "coffee", model.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, replacement.ID, found.ID)
	assert.Equal(t, "Entertainment", found.TargetCategory)

	// Exactly one active row remains for the key; the seeded one is
	// deprecated, not deleted.
	active, err := store.ListMappings(ctx, service.MappingFilter{
		Kind:     model.KindKeyword,
		Language: model.LanguageEnglish,
		Status:   model.MappingActive,
	})
	require.NoError(t, err)
	activeCoffee := 0
	for _, m := range active {
		if m.Key == "coffee" {
			activeCoffee++
		}
	}
	assert.Equal(t, 1, activeCoffee)

	deprecated, err := store.ListMappings(ctx, service.MappingFilter{
		Kind:     model.KindKeyword,
		Language: model.LanguageEnglish,
		Status:   model.MappingDeprecated,
	})
	require.NoError(t, err)
	deprecatedCoffee := 0
	for _, m := range deprecated {
		if m.Key == "coffee" {
			deprecatedCoffee++
		}
	}
	assert.Equal(t, 1, deprecatedCoffee)
}

func TestSaveMappingRejectsUnknownCategory(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveMapping(context.Background(), &model.CategoryMapping{
		Kind:           model.KindKeyword,
		Key:            "kombucha",
		Language:       model.LanguageEnglish,
		TargetCategory: "No Such Category",
		Confidence:     0.8,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestFindFuzzy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("matches a near miss", func(t *testing.T) {
		mapping, score, err := store.FindFuzzy(ctx, model.KindKeyword, "coffe", model.LanguageEnglish, 0.8)
		require.NoError(t, err)
		assert.Equal(t, "coffee", mapping.Key)
		assert.InDelta(t, 8.0/9.0, score, 0.001)
	})

	t.Run("matches through an alias", func(t *testing.T) {
		mapping, score, err := store.FindFuzzy(ctx, model.KindKeyword, "cappucino", model.LanguageEnglish, 0.8)
		require.NoError(t, err)
		assert.Equal(t, "coffee", mapping.Key)
		assert.Greater(t, score, 0.8)
	})

	t.Run("nothing clears the threshold", func(t *testing.T) {
		_, _, err := store.FindFuzzy(ctx, model.KindKeyword, "xylophone", model.LanguageEnglish, 0.8)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("rejects a bad threshold", func(t *testing.T) {
		_, _, err := store.FindFuzzy(ctx, model.KindKeyword, "coffee", model.LanguageEnglish, 1.5)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	})
}

func TestDeprecateMapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.DeprecateMapping(ctx, model.KindKeyword, "coffee", model.LanguageEnglish))

	_, err := store.FindMapping(ctx, model.KindKeyword, "coffee", model.LanguageEnglish)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Deprecating twice finds no active row the second time.
	err = store.DeprecateMapping(ctx, model.KindKeyword, "coffee", model.LanguageEnglish)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUsageCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mapping := &model.CategoryMapping{
		Kind:           model.KindKeyword,
		Key:            "ramen",
		Language:       model.LanguageEnglish,
		TargetCategory: "Food & Dining",
		Confidence:     0.8,
	}
	require.NoError(t, store.SaveMapping(ctx, mapping))

	// Counter updates bypass the read cache, so assertions go through
	// ListMappings rather than FindMapping.
	counters := func() (int64, float64) {
		t.Helper()
		mappings, err := store.ListMappings(ctx, service.MappingFilter{
			Kind:     model.KindKeyword,
			Language: model.LanguageEnglish,
		})
		require.NoError(t, err)
		for _, m := range mappings {
			if m.ID == mapping.ID {
				return m.UseCount, m.SuccessRate
			}
		}
		t.Fatalf("mapping %s not listed", mapping.ID)
		return 0, 0
	}

	require.NoError(t, store.RecordUse(ctx, mapping.ID, false))
	useCount, successRate := counters()
	assert.Equal(t, int64(1), useCount)
	assert.InDelta(t, 0.0, successRate, 0.001)

	require.NoError(t, store.RecordUse(ctx, mapping.ID, true))
	useCount, successRate = counters()
	assert.Equal(t, int64(2), useCount)
	assert.InDelta(t, 0.5, successRate, 0.001)

	require.NoError(t, store.IncrementUsage(ctx, mapping.ID))
	useCount, successRate = counters()
	assert.Equal(t, int64(3), useCount)
	assert.InDelta(t, 0.5, successRate, 0.001, "increment does not touch the success rate")

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, store.IncrementUsage(ctx, "no-such-id"), common.ErrNotFound)
		assert.ErrorIs(t, store.RecordUse(ctx, "no-such-id", true), common.ErrNotFound)
	})
}

func TestListMappings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("orders by use count", func(t *testing.T) {
		mapping := &model.CategoryMapping{
			Kind:           model.KindKeyword,
			Key:            "sushi",
			Language:       model.LanguageEnglish,
			TargetCategory: "Food & Dining",
			Confidence:     0.8,
		}
		require.NoError(t, store.SaveMapping(ctx, mapping))
		for i := 0; i < 5; i++ {
			require.NoError(t, store.IncrementUsage(ctx, mapping.ID))
		}

		mappings, err := store.ListMappings(ctx, service.MappingFilter{
			Kind:     model.KindKeyword,
			Language: model.LanguageEnglish,
		})
		require.NoError(t, err)
		require.NotEmpty(t, mappings)
		assert.Equal(t, "sushi", mappings[0].Key)
	})

	t.Run("honors limit", func(t *testing.T) {
		mappings, err := store.ListMappings(ctx, service.MappingFilter{Limit: 3})
		require.NoError(t, err)
		assert.Len(t, mappings, 3)
	})
}

func TestMappingValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("empty key", func(t *testing.T) {
		_, err := store.FindMapping(ctx, model.KindKeyword, "  ", model.LanguageEnglish)
		assert.ErrorIs(t, err, ErrEmptyString)
	})

	t.Run("nil mapping", func(t *testing.T) {
		assert.ErrorIs(t, store.SaveMapping(ctx, nil), ErrNilParameter)
	})

	t.Run("invalid mapping", func(t *testing.T) {
		err := store.SaveMapping(ctx, &model.CategoryMapping{
			Kind:           "emoji",
			Key:            "coffee",
			Language:       model.LanguageEnglish,
			TargetCategory: "Food & Dining",
		})
		assert.ErrorIs(t, err, ErrInvalidMapping)
	})
}
