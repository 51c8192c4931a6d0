package cache

import (
	"context"

	"github.com/itsarapong/satang/internal/lang"
	"github.com/itsarapong/satang/internal/model"
)

// GetOrCompute returns a cached result for text, or runs compute and
// caches its result. Concurrent callers whose inputs fingerprint into
// the same cluster share a single compute invocation and receive the
// same result. A failed compute caches nothing, so later calls retry.
func (c *SimilarityCache) GetOrCompute(ctx context.Context, text string, compute func(context.Context) (model.ExtractionResult, error)) (model.ExtractionResult, error) {
	fp := lang.NewFingerprint(text)

	if result, ok := c.lookup(fp); ok {
		return result, nil
	}

	key, owned := c.joinCluster(fp)
	if owned {
		defer c.leaveCluster(key)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A flight for this cluster may have landed between our miss
		// and now; serve its result instead of recomputing.
		if result, ok := c.lookup(fp); ok {
			return result, nil
		}

		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Store(text, result)
		return result, nil
	})
	if err != nil {
		return model.ExtractionResult{}, err
	}
	return v.(model.ExtractionResult), nil
}

// joinCluster returns the flight key for fp: an already-pending
// fingerprint within the similarity threshold if one exists, otherwise
// fp registered as a new cluster. The second return reports whether the
// caller owns the registration and must release it with leaveCluster.
func (c *SimilarityCache) joinCluster(fp lang.Fingerprint) (string, bool) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	for key, pending := range c.pending {
		if key == fp.Key || lang.Jaccard(fp, pending) >= c.cfg.SimilarityThreshold {
			return key, false
		}
	}

	c.pending[fp.Key] = fp
	return fp.Key, true
}

func (c *SimilarityCache) leaveCluster(key string) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	delete(c.pending, key)
}
