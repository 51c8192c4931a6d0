package resolve

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsarapong/satang/internal/extract"
	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/service"
	"github.com/itsarapong/satang/internal/testutil"
)

func newTestResolver(t *testing.T, store service.MappingStore) *Resolver {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, DefaultConfig(), logger)
}

// extracted builds a pattern-pass result whose merchant and category are
// still unresolved.
func extracted(description string) model.ExtractionResult {
	return model.ExtractionResult{
		Language:    model.LanguageEnglish,
		Method:      model.MethodLocal,
		Amount:      model.Field[float64]{Value: 100, Confidence: 0.9, Source: model.SourcePattern},
		Currency:    model.Field[string]{Value: "THB", Confidence: 0.7, Source: model.SourcePattern},
		Merchant:    model.Field[string]{Value: extract.UnknownMerchant, Confidence: 0.1, Source: model.SourcePattern},
		Category:    model.Field[string]{Value: extract.UncategorizedCategory, Confidence: 0.1, Source: model.SourcePattern},
		Description: model.Field[string]{Value: description, Confidence: 0.8, Source: model.SourcePattern},
	}
}

func TestResolveKeyword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db.Store)

	resolved, err := r.Resolve(context.Background(), extracted("coffee 100 baht"))
	require.NoError(t, err)

	assert.Equal(t, "Food & Dining", resolved.Category.Value)
	assert.InDelta(t, 0.85, resolved.Category.Confidence, 0.001)
	assert.Equal(t, model.SourceMapping, resolved.Category.Source)

	// No merchant in the vocabulary or the text; the default stands.
	assert.Equal(t, extract.UnknownMerchant, resolved.Merchant.Value)
	assert.Equal(t, model.SourceMapping, resolved.Merchant.Source)
}

func TestResolveKeywordAlias(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db.Store)

	resolved, err := r.Resolve(context.Background(), extracted("latte 100"))
	require.NoError(t, err)

	assert.Equal(t, "Food & Dining", resolved.Category.Value)
	assert.InDelta(t, 0.85, resolved.Category.Confidence, 0.001)
}

func TestResolveKeywordFuzzy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db.Store)

	// One dropped letter still matches, discounted by the similarity.
	resolved, err := r.Resolve(context.Background(), extracted("coffe 100"))
	require.NoError(t, err)

	assert.Equal(t, "Food & Dining", resolved.Category.Value)
	assert.InDelta(t, 0.85*8.0/9.0, resolved.Category.Confidence, 0.001)
	assert.Equal(t, model.SourceMapping, resolved.Category.Source)
}

func TestResolveMerchant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db.Store)

	in := extracted("100 baht")
	in.Merchant = model.Field[string]{Value: "starbucks", Confidence: 0.6, Source: model.SourcePattern}

	resolved, err := r.Resolve(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Starbucks", resolved.Merchant.Value, "merchant is canonicalized")
	assert.InDelta(t, 0.9, resolved.Merchant.Confidence, 0.001)
	assert.Equal(t, model.SourceMapping, resolved.Merchant.Source)

	// The merchant hit pins the category as well.
	assert.Equal(t, "Food & Dining", resolved.Category.Value)
	assert.InDelta(t, 0.9, resolved.Category.Confidence, 0.001)

	// The hit is counted against the mapping.
	mappings, err := db.Store.ListMappings(context.Background(), service.MappingFilter{
		Kind:     model.KindMerchant,
		Language: model.LanguageEnglish,
	})
	require.NoError(t, err)
	for _, m := range mappings {
		if m.Key == "starbucks" {
			assert.Equal(t, int64(1), m.UseCount)
			return
		}
	}
	t.Fatal("starbucks mapping not listed")
}

func TestResolveThaiMerchantToneInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db.Store)

	in := extracted("89 บาท")
	in.Language = model.LanguageThai
	in.Merchant = model.Field[string]{Value: "เซเว่น", Confidence: 0.6, Source: model.SourcePattern}

	resolved, err := r.Resolve(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "7-Eleven", resolved.Merchant.Value)
	assert.Equal(t, "Groceries", resolved.Category.Value)
}

func TestResolveKeepsBetterGuess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db.Store)

	in := extracted("coffee 100")
	in.Merchant = model.Field[string]{Value: "Starbucks", Confidence: 0.95, Source: model.SourcePattern}
	in.Category = model.Field[string]{Value: "Entertainment", Confidence: 0.95, Source: model.SourcePattern}

	resolved, err := r.Resolve(context.Background(), in)
	require.NoError(t, err)

	// The vocabulary's 0.9 and 0.85 lose to the extractor's 0.95.
	assert.Equal(t, "Starbucks", resolved.Merchant.Value)
	assert.InDelta(t, 0.95, resolved.Merchant.Confidence, 0.001)
	assert.Equal(t, model.SourcePattern, resolved.Merchant.Source)
	assert.Equal(t, "Entertainment", resolved.Category.Value)
	assert.Equal(t, model.SourcePattern, resolved.Category.Source)
}

func TestResolveNilStore(t *testing.T) {
	r := newTestResolver(t, nil)

	resolved, err := r.Resolve(context.Background(), extracted("coffee 100 baht"))
	require.NoError(t, err)

	assert.Equal(t, extract.UncategorizedCategory, resolved.Category.Value)
	assert.Equal(t, model.SourceMapping, resolved.Category.Source)
	assert.Equal(t, extract.UnknownMerchant, resolved.Merchant.Value)
	assert.Equal(t, 100.0, resolved.Amount.Value, "extraction fields pass through")
}

func TestResolveSurvivesStoreOutage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db.Store)

	// Kill the store out from under the resolver.
	require.NoError(t, db.Store.Close())

	resolved, err := r.Resolve(context.Background(), extracted("coffee 100 baht"))
	require.NoError(t, err, "a store outage degrades, it does not fail")

	assert.Equal(t, extract.UncategorizedCategory, resolved.Category.Value)
	assert.Equal(t, extract.UnknownMerchant, resolved.Merchant.Value)
}

func TestResolveCanceledContext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db.Store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, extracted("coffee 100"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProposeCandidates(t *testing.T) {
	t.Run("unknown merchant becomes a candidate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		r := newTestResolver(t, db.Store)

		result := extracted("after you 250 baht")
		result.Merchant = model.Field[string]{Value: "After You", Confidence: 0.8, Source: model.SourcePattern}
		result.Category = model.Field[string]{Value: "Food & Dining", Confidence: 0.8, Source: model.SourceMapping}
		result.Confidence = 0.8

		r.ProposeCandidates(context.Background(), result)

		pending, err := db.Store.ListCandidates(context.Background(), model.CandidatePending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, model.KindMerchant, pending[0].Kind)
		assert.Equal(t, "after you", pending[0].Key, "candidate keys are normalized")
		assert.Equal(t, "Food & Dining", pending[0].SuggestedCategory)
		assert.InDelta(t, 0.8, pending[0].AvgConfidence, 0.001)
	})

	t.Run("model-named category proposes a keyword", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		r := newTestResolver(t, db.Store)

		result := extracted("grabbike ride home 150")
		result.Category = model.Field[string]{Value: "Transportation", Confidence: 0.85, Source: model.SourceAI}
		result.Confidence = 0.82

		r.ProposeCandidates(context.Background(), result)

		pending, err := db.Store.ListCandidates(context.Background(), model.CandidatePending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, model.KindKeyword, pending[0].Kind)
		assert.Equal(t, "grabbike", pending[0].Key, "the longest token carries the meaning")
		assert.Equal(t, "Transportation", pending[0].SuggestedCategory)
	})

	t.Run("low-confidence results propose nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		r := newTestResolver(t, db.Store)

		result := extracted("after you 250")
		result.Merchant = model.Field[string]{Value: "After You", Confidence: 0.8, Source: model.SourcePattern}
		result.Category = model.Field[string]{Value: "Food & Dining", Confidence: 0.8, Source: model.SourceAI}
		result.Confidence = 0.5

		r.ProposeCandidates(context.Background(), result)

		pending, err := db.Store.ListCandidates(context.Background(), model.CandidatePending)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("uncategorized results propose nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		r := newTestResolver(t, db.Store)

		result := extracted("mystery 999")
		result.Merchant = model.Field[string]{Value: "Mystery Shop", Confidence: 0.8, Source: model.SourcePattern}
		result.Confidence = 0.9

		r.ProposeCandidates(context.Background(), result)

		pending, err := db.Store.ListCandidates(context.Background(), model.CandidatePending)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("vocabulary merchants are not re-proposed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		r := newTestResolver(t, db.Store)

		result := extracted("starbucks 180")
		result.Merchant = model.Field[string]{Value: "Starbucks", Confidence: 0.9, Source: model.SourceMapping}
		result.Category = model.Field[string]{Value: "Food & Dining", Confidence: 0.9, Source: model.SourceMapping}
		result.Confidence = 0.9

		r.ProposeCandidates(context.Background(), result)

		pending, err := db.Store.ListCandidates(context.Background(), model.CandidatePending)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestNewResolverDefaults(t *testing.T) {
	r := New(nil, Config{FuzzyThreshold: -1, StoreTimeout: 0}, nil)
	assert.InDelta(t, DefaultConfig().FuzzyThreshold, r.cfg.FuzzyThreshold, 0.001)
	assert.Equal(t, DefaultConfig().StoreTimeout, r.cfg.StoreTimeout)
}
