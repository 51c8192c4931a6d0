package storage

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCategories(t *testing.T) {
	store := newTestStore(t)

	categories, err := store.GetCategories(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(categories), 12, "migrations seed the canonical set")

	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.Name
	}
	assert.Contains(t, names, "Food & Dining")
	assert.Contains(t, names, "Uncategorized")
	assert.True(t, sort.StringsAreSorted(names), "categories are listed by name")
}

func TestGetCategoryByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		cat, err := store.GetCategoryByName(ctx, "Transportation")
		require.NoError(t, err)
		require.NotNil(t, cat)
		assert.Equal(t, "Transportation", cat.Name)
		assert.True(t, cat.IsActive)
	})

	t.Run("missing returns nil without error", func(t *testing.T) {
		cat, err := store.GetCategoryByName(ctx, "Chartreuse")
		require.NoError(t, err)
		assert.Nil(t, cat)
	})
}

func TestCreateCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateCategory(ctx, "Pets", "Vet visits and pet food")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Positive(t, created.ID)
	assert.True(t, created.IsActive)

	t.Run("creating again returns the existing row", func(t *testing.T) {
		again, err := store.CreateCategory(ctx, "Pets", "different description")
		require.NoError(t, err)
		assert.Equal(t, created.ID, again.ID)
		assert.Equal(t, "Vet visits and pet food", again.Description)
	})

	t.Run("reactivates a deactivated category", func(t *testing.T) {
		_, err := store.db.ExecContext(ctx, `UPDATE categories SET is_active = 0 WHERE name = 'Pets'`)
		require.NoError(t, err)

		hidden, err := store.GetCategoryByName(ctx, "Pets")
		require.NoError(t, err)
		require.Nil(t, hidden)

		revived, err := store.CreateCategory(ctx, "Pets", "")
		require.NoError(t, err)
		assert.Equal(t, created.ID, revived.ID)
		assert.True(t, revived.IsActive)

		visible, err := store.GetCategoryByName(ctx, "Pets")
		require.NoError(t, err)
		require.NotNil(t, visible)
	})
}
