package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/itsarapong/satang/internal/lang"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					description TEXT DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					is_active BOOLEAN DEFAULT 1
				)`,
				`CREATE INDEX idx_categories_active ON categories(is_active)`,

				`CREATE TABLE IF NOT EXISTS mappings (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					key TEXT NOT NULL,
					language TEXT NOT NULL,
					target_category TEXT NOT NULL,
					target_merchant TEXT DEFAULT '',
					aliases TEXT DEFAULT '[]',
					status TEXT NOT NULL DEFAULT 'active',
					confidence REAL NOT NULL DEFAULT 0.8,
					use_count INTEGER DEFAULT 0,
					success_count INTEGER DEFAULT 0,
					success_rate REAL DEFAULT 1.0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_mappings_language ON mappings(language, kind)`,
				`CREATE INDEX idx_mappings_status ON mappings(status)`,
				// At most one active mapping per (kind, key, language).
				`CREATE UNIQUE INDEX idx_mappings_active_key
					ON mappings(kind, key, language) WHERE status = 'active'`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add mapping candidates for vocabulary growth",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS mapping_candidates (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					key TEXT NOT NULL,
					language TEXT NOT NULL,
					suggested_category TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					occurrences INTEGER DEFAULT 1,
					avg_confidence REAL DEFAULT 0,
					first_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
					last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE UNIQUE INDEX idx_candidates_key
					ON mapping_candidates(kind, key, language)`,
				`CREATE INDEX idx_candidates_status ON mapping_candidates(status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Seed canonical categories",
		Up:          seedCategories,
	},
	{
		Version:     4,
		Description: "Seed default English and Thai vocabulary",
		Up:          seedVocabulary,
	},
}

// seedCategories inserts the canonical category set, leaving existing
// rows untouched.
func seedCategories(tx *sql.Tx) error {
	categories := []struct {
		name        string
		description string
	}{
		{"Food & Dining", "Restaurants, cafes, food delivery, and street food"},
		{"Groceries", "Supermarkets, convenience stores, and fresh markets"},
		{"Transportation", "Taxis, ride hailing, public transit, and fuel"},
		{"Shopping", "Clothing, electronics, and general retail"},
		{"Entertainment", "Movies, streaming, games, and nightlife"},
		{"Bills & Utilities", "Rent, electricity, water, phone, and internet"},
		{"Health", "Pharmacies, clinics, hospitals, and fitness"},
		{"Travel", "Hotels, flights, and trips"},
		{"Education", "Tuition, courses, and books"},
		{"Income", "Salary and other money received"},
		{"Transfers", "Moves between own accounts"},
		{"Uncategorized", "Transactions no rule or mapping could place"},
	}

	for _, cat := range categories {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO categories (name, description, is_active) VALUES (?, ?, 1)`,
			cat.name, cat.description,
		); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat.name, err)
		}
	}
	return nil
}

// seedVocabulary inserts the built-in mapping set, leaving existing rows
// untouched.
func seedVocabulary(tx *sql.Tx) error {
	for _, seed := range defaultVocabulary {
		// Keys and aliases are written in their normalized form, the
		// form the resolver looks up. Thai entries lose their tone
		// marks here; that is what makes lookups tone-insensitive.
		normalized := make([]string, len(seed.aliases))
		for i, alias := range seed.aliases {
			normalized[i] = lang.Normalize(alias)
		}
		aliases, err := json.Marshal(normalized)
		if err != nil {
			return fmt.Errorf("failed to marshal aliases for %q: %w", seed.key, err)
		}
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO mappings
				(id, kind, key, language, target_category, target_merchant, aliases, status, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, 'active', ?)
		`, uuid.NewString(), seed.kind, lang.Normalize(seed.key), seed.language,
			seed.category, seed.merchant, string(aliases), seed.confidence,
		); err != nil {
			return fmt.Errorf("failed to seed mapping %q: %w", seed.key, err)
		}
	}

	slog.Info("Seeded default vocabulary", "mappings", len(defaultVocabulary))
	return nil
}

// SeedDefaults re-applies the built-in categories and vocabulary, for
// example after entries were deleted by hand. Existing rows are never
// overwritten.
func (s *SQLiteStorage) SeedDefaults(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := seedCategories(tx); err != nil {
		return err
	}
	if err := seedVocabulary(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	s.invalidateMappingCache()
	return nil
}

// seedMapping is one row of the built-in vocabulary.
type seedMapping struct {
	kind       string
	key        string
	language   string
	category   string
	merchant   string
	confidence float64
	aliases    []string
}

// defaultVocabulary is the starter mapping set. Keys are stored in
// normalized form, the same way the resolver looks them up.
var defaultVocabulary = []seedMapping{
	// English keywords.
	{"keyword", "coffee", "en", "Food & Dining", "", 0.85, []string{"latte", "espresso", "cappuccino"}},
	{"keyword", "lunch", "en", "Food & Dining", "", 0.85, []string{"breakfast", "dinner", "brunch"}},
	{"keyword", "groceries", "en", "Groceries", "", 0.85, []string{"grocery", "supermarket"}},
	{"keyword", "taxi", "en", "Transportation", "", 0.85, []string{"cab", "ride"}},
	{"keyword", "bus", "en", "Transportation", "", 0.8, []string{"train", "bts", "mrt"}},
	{"keyword", "movie", "en", "Entertainment", "", 0.85, []string{"cinema", "concert"}},
	{"keyword", "rent", "en", "Bills & Utilities", "", 0.9, nil},
	{"keyword", "electricity", "en", "Bills & Utilities", "", 0.9, []string{"electric bill", "water bill"}},
	{"keyword", "pharmacy", "en", "Health", "", 0.85, []string{"medicine", "drugstore"}},
	{"keyword", "clothes", "en", "Shopping", "", 0.8, []string{"shoes", "shirt"}},
	{"keyword", "hotel", "en", "Travel", "", 0.85, []string{"hostel", "flight"}},
	{"keyword", "tuition", "en", "Education", "", 0.85, []string{"course", "textbook"}},
	{"keyword", "salary", "en", "Income", "", 0.9, []string{"paycheck"}},

	// Thai keywords.
	{"keyword", "กาแฟ", "th", "Food & Dining", "", 0.85, []string{"ลาเต้", "ชานม"}},
	{"keyword", "ข้าว", "th", "Food & Dining", "", 0.8, []string{"อาหาร", "ก๋วยเตี๋ยว"}},
	{"keyword", "แท็กซี่", "th", "Transportation", "", 0.85, []string{"มอไซค์", "วินมอเตอร์ไซค์"}},
	{"keyword", "รถเมล์", "th", "Transportation", "", 0.8, []string{"รถไฟฟ้า", "น้ำมัน"}},
	{"keyword", "หนัง", "th", "Entertainment", "", 0.8, []string{"ดูหนัง"}},
	{"keyword", "ค่าไฟ", "th", "Bills & Utilities", "", 0.9, []string{"ค่าน้ำ", "ค่าเน็ต"}},
	{"keyword", "ค่าเช่า", "th", "Bills & Utilities", "", 0.9, nil},
	{"keyword", "ยา", "th", "Health", "", 0.8, []string{"หาหมอ", "โรงพยาบาล"}},
	{"keyword", "เสื้อ", "th", "Shopping", "", 0.8, []string{"รองเท้า", "กระเป๋า"}},
	{"keyword", "เงินเดือน", "th", "Income", "", 0.9, nil},

	// Merchants, both scripts.
	{"merchant", "starbucks", "en", "Food & Dining", "Starbucks", 0.9, nil},
	{"merchant", "7-eleven", "en", "Groceries", "7-Eleven", 0.9, []string{"7-11", "seven eleven"}},
	{"merchant", "grab", "en", "Transportation", "Grab", 0.85, []string{"grabfood"}},
	{"merchant", "netflix", "en", "Entertainment", "Netflix", 0.95, nil},
	{"merchant", "big c", "en", "Groceries", "Big C", 0.9, nil},
	{"merchant", "lotus", "en", "Groceries", "Lotus's", 0.9, []string{"tesco lotus", "tesco"}},
	{"merchant", "เซเว่น", "th", "Groceries", "7-Eleven", 0.9, []string{"เซเว่นอีเลฟเว่น"}},
	{"merchant", "สตาร์บัคส์", "th", "Food & Dining", "Starbucks", 0.9, nil},
	{"merchant", "แกร็บ", "th", "Transportation", "Grab", 0.85, nil},
	{"merchant", "โลตัส", "th", "Groceries", "Lotus's", 0.9, nil},
	{"merchant", "บิ๊กซี", "th", "Groceries", "Big C", 0.9, nil},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
