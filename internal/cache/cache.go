// Package cache implements the fuzzy similarity cache for extraction
// results, including the at-most-one-in-flight guarantee for expensive
// fallback computations.
package cache

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/itsarapong/satang/internal/lang"
	"github.com/itsarapong/satang/internal/model"
)

// Config holds the tuning knobs for the similarity cache.
type Config struct {
	// SimilarityThreshold is the minimum Jaccard score for a fuzzy hit.
	SimilarityThreshold float64
	// MaxEntries bounds the cache size; when full the oldest fifth of
	// entries by last use is evicted.
	MaxEntries int
	// TTLAI applies to results the language model contributed to.
	TTLAI time.Duration
	// TTLLocal applies to confident pattern-only results.
	TTLLocal time.Duration
	// MinConfidence is the floor below which local results are never
	// cached, so degraded or unescalated answers cannot poison lookups.
	MinConfidence float64
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.8,
		MaxEntries:          1000,
		TTLAI:               24 * time.Hour,
		TTLLocal:            30 * time.Minute,
		MinConfidence:       0.6,
	}
}

// entry is a stored result keyed by fingerprint.
type entry struct {
	createdAt   time.Time
	lastUsed    time.Time
	expiresAt   time.Time
	fingerprint lang.Fingerprint
	result      model.ExtractionResult
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Entries        int
	ExactHits      int64
	SimilarityHits int64
	Misses         int64
	Evictions      int64
}

// SimilarityCache caches extraction results keyed by text fingerprint and
// serves lookups for near-identical inputs, not just exact repeats. It is
// safe for concurrent use. Close must be called to stop the cleanup
// goroutine.
type SimilarityCache struct {
	cfg     Config
	entries map[string]*entry
	stats   Stats
	mu      sync.Mutex

	// In-flight computation tracking for GetOrCompute.
	group    singleflight.Group
	pending  map[string]lang.Fingerprint
	flightMu sync.Mutex

	stopCh chan struct{}
}

// New creates a similarity cache and starts its cleanup goroutine.
func New(cfg Config) *SimilarityCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	c := &SimilarityCache{
		cfg:     cfg,
		entries: make(map[string]*entry),
		pending: make(map[string]lang.Fingerprint),
		stopCh:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Lookup returns the stored result nearest to text above the similarity
// threshold. The returned copy carries Method cache-hit; everything else
// is bit-identical to what was stored. A hit refreshes the entry's
// last-used time.
func (c *SimilarityCache) Lookup(text string) (model.ExtractionResult, bool) {
	return c.lookup(lang.NewFingerprint(text))
}

func (c *SimilarityCache) lookup(fp lang.Fingerprint) (model.ExtractionResult, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Exact fast path.
	if e, ok := c.entries[fp.Key]; ok && now.Before(e.expiresAt) {
		e.lastUsed = now
		c.stats.ExactHits++
		return asCacheHit(e.result), true
	}

	// Fuzzy scan: best similarity wins, ties broken by most recent use.
	var best *entry
	var bestScore float64
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			continue
		}
		score := lang.Jaccard(fp, e.fingerprint)
		if score < c.cfg.SimilarityThreshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && e.lastUsed.After(best.lastUsed)) {
			best = e
			bestScore = score
		}
	}

	if best == nil {
		c.stats.Misses++
		return model.ExtractionResult{}, false
	}

	best.lastUsed = now
	c.stats.SimilarityHits++
	return asCacheHit(best.result), true
}

// Store caches a result according to the TTL policy: AI-enhanced results
// keep the long TTL, confident local results the short one, and anything
// else (degraded, unescalated low-confidence, or already-cached results)
// is not stored at all.
func (c *SimilarityCache) Store(text string, result model.ExtractionResult) {
	ttl, ok := c.ttlFor(result)
	if !ok {
		return
	}

	fp := lang.NewFingerprint(text)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fp.Key]; !exists && len(c.entries) >= c.cfg.MaxEntries {
		c.evictLocked()
	}

	c.entries[fp.Key] = &entry{
		createdAt:   now,
		lastUsed:    now,
		expiresAt:   now.Add(ttl),
		fingerprint: fp,
		result:      result,
	}
}

func (c *SimilarityCache) ttlFor(result model.ExtractionResult) (time.Duration, bool) {
	switch result.Method {
	case model.MethodAIFallback:
		return c.cfg.TTLAI, true
	case model.MethodLocal:
		if result.Confidence >= c.cfg.MinConfidence {
			return c.cfg.TTLLocal, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// evictLocked removes the oldest fifth of entries by last use. Caller
// holds the write lock.
func (c *SimilarityCache) evictLocked() {
	n := len(c.entries) / 5
	if n < 1 {
		n = 1
	}

	victims := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		victims = append(victims, e)
	}
	sort.Slice(victims, func(i, j int) bool {
		return victims[i].lastUsed.Before(victims[j].lastUsed)
	})

	for i := 0; i < n && i < len(victims); i++ {
		delete(c.entries, victims[i].fingerprint.Key)
		c.stats.Evictions++
	}
}

// Clear removes all entries.
func (c *SimilarityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Stats returns a snapshot of the cache counters.
func (c *SimilarityCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Entries = len(c.entries)
	return stats
}

// cleanup periodically removes expired entries.
func (c *SimilarityCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, e := range c.entries {
				if !now.Before(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *SimilarityCache) Close() {
	close(c.stopCh)
}

func asCacheHit(result model.ExtractionResult) model.ExtractionResult {
	result.Method = model.MethodCacheHit
	return result
}
