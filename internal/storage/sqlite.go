package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/itsarapong/satang/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// mappingCacheTTL bounds how long resolved mappings are served from
// memory before re-reading the database.
const mappingCacheTTL = 5 * time.Minute

// SQLiteStorage implements the MappingStore interface using SQLite.
// Hot-path reads go through a small in-memory cache so resolving a
// message does not hit the database for every token.
type SQLiteStorage struct {
	cacheExpiry       time.Time
	db                *sql.DB
	mappingCache      map[string]*model.CategoryMapping
	dbPath            string
	promoteAfter      int
	promoteConfidence float64
	cacheMutex        sync.RWMutex
	autoPromote       bool
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:                db,
		dbPath:            dbPath,
		mappingCache:      make(map[string]*model.CategoryMapping),
		promoteAfter:      defaultPromoteAfter,
		promoteConfidence: defaultPromoteConfidence,
		autoPromote:       true,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// cacheKey builds the exact-lookup cache key for a mapping.
func cacheKey(kind model.MappingKind, key string, lang model.Language) string {
	return string(kind) + "\x00" + key + "\x00" + string(lang)
}

// getCachedMapping retrieves a mapping from the cache if fresh.
func (s *SQLiteStorage) getCachedMapping(key string) *model.CategoryMapping {
	s.cacheMutex.RLock()

	if time.Now().After(s.cacheExpiry) {
		// Cache expired; clear under the write lock.
		s.cacheMutex.RUnlock()
		s.cacheMutex.Lock()
		defer s.cacheMutex.Unlock()

		if time.Now().After(s.cacheExpiry) {
			s.mappingCache = make(map[string]*model.CategoryMapping)
		}
		return nil
	}

	mapping := s.mappingCache[key]
	s.cacheMutex.RUnlock()
	return mapping
}

// cacheMapping adds a mapping to the cache.
func (s *SQLiteStorage) cacheMapping(mapping *model.CategoryMapping) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if len(s.mappingCache) == 0 {
		s.cacheExpiry = time.Now().Add(mappingCacheTTL)
	}
	s.mappingCache[cacheKey(mapping.Kind, mapping.Key, mapping.Language)] = mapping
}

// invalidateMappingCache drops all cached mappings. Called after writes
// that change resolution results.
func (s *SQLiteStorage) invalidateMappingCache() {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	s.mappingCache = make(map[string]*model.CategoryMapping)
}
