package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsarapong/satang/internal/model"
)

func TestGetOrComputeCachesResult(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	var calls atomic.Int32
	compute := func(context.Context) (model.ExtractionResult, error) {
		calls.Add(1)
		return localResult(100, 0.9), nil
	}

	result, err := c.GetOrCompute(ctx, "coffee 100 baht", compute)
	require.NoError(t, err)
	assert.Equal(t, model.MethodLocal, result.Method)
	assert.Equal(t, int32(1), calls.Load())

	// The second call is served from the cache.
	result, err = c.GetOrCompute(ctx, "coffee 100 baht", compute)
	require.NoError(t, err)
	assert.Equal(t, model.MethodCacheHit, result.Method)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	var calls atomic.Int32
	compute := func(context.Context) (model.ExtractionResult, error) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		return localResult(100, 0.9), nil
	}

	const workers = 8
	results := make([]model.ExtractionResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(ctx, "coffee 100 baht", compute)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent identical inputs must share one computation")
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.InDelta(t, 100, results[i].Amount.Value, 1e-9)
	}
}

func TestGetOrComputeSharesFlightAcrossSimilarInputs(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	var calls atomic.Int32
	compute := func(context.Context) (model.ExtractionResult, error) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		return localResult(100, 0.9), nil
	}

	// The two texts fingerprint within the similarity threshold, so the
	// second caller joins the first caller's flight.
	texts := []string{
		"iced coffee 100 starbucks",
		"iced coffee 100 starbucks please",
	}

	var wg sync.WaitGroup
	results := make([]model.ExtractionResult, len(texts))
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			var err error
			results[i], err = c.GetOrCompute(ctx, text, compute)
			assert.NoError(t, err)
		}(i, text)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.InDelta(t, results[0].Amount.Value, results[1].Amount.Value, 1e-9)
}

func TestGetOrComputeFailureCachesNothing(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	boom := errors.New("provider down")
	var calls atomic.Int32

	_, err := c.GetOrCompute(ctx, "coffee 100", func(context.Context) (model.ExtractionResult, error) {
		calls.Add(1)
		return model.ExtractionResult{}, boom
	})
	require.ErrorIs(t, err, boom)

	// The failure was not cached; the next call computes again.
	result, err := c.GetOrCompute(ctx, "coffee 100", func(context.Context) (model.ExtractionResult, error) {
		calls.Add(1)
		return localResult(100, 0.9), nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.MethodLocal, result.Method)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOrComputeSkipsComputeOnCachedInput(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	c.Store("coffee 100 baht", localResult(100, 0.9))

	result, err := c.GetOrCompute(ctx, "coffee 100 baht", func(context.Context) (model.ExtractionResult, error) {
		t.Fatal("compute should not run for a cached input")
		return model.ExtractionResult{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.MethodCacheHit, result.Method)
}
