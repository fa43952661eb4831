package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the AgeStore interface
type SQLiteCache struct {
	db     *sql.DB
	logger *zap.Logger
	ttl    time.Duration
	stopCh chan struct{}
	once   sync.Once
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, ttl, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_age (
			domain TEXT PRIMARY KEY,
			created_at TIMESTAMP NULL,
			checked_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on checked_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_checked_at ON domain_age(checked_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:     db,
		logger: logger,
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	if ttl > 0 && cleanupFreq > 0 {
		go startCleanupTask(cache, cleanupFreq, cache.stopCh, logger)
	}

	return cache, nil
}

// Get retrieves a cached entry for a domain
func (c *SQLiteCache) Get(ctx context.Context, domain string) (*core.AgeEntry, error) {
	var createdAt sql.NullString
	var checkedAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT created_at, checked_at
		FROM domain_age
		WHERE domain = ?
	`, domain).Scan(&createdAt, &checkedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	return decodeEntry(domain, createdAt, checkedAt)
}

// Set stores a cache entry
func (c *SQLiteCache) Set(ctx context.Context, entry *core.AgeEntry) error {
	createdAt, checkedAt := encodeEntry(entry)

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO domain_age (domain, created_at, checked_at)
		VALUES (?, ?, ?)
	`, entry.Domain, createdAt, checkedAt)

	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Cleanup removes entries checked longer than ttl ago
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	if c.ttl <= 0 {
		return nil
	}

	result, err := c.db.ExecContext(ctx, `
		DELETE FROM domain_age
		WHERE checked_at <= ?
	`, time.Now().Add(-c.ttl).UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close SQLite database", zap.Error(err))
		}
	})
}

// encodeEntry renders timestamps as UTC RFC3339 text, NULL for unknown dates
func encodeEntry(entry *core.AgeEntry) (sql.NullString, string) {
	var createdAt sql.NullString
	if entry.CreatedAt != nil {
		createdAt = sql.NullString{String: entry.CreatedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	return createdAt, entry.CheckedAt.UTC().Format(time.RFC3339)
}

func decodeEntry(domain string, createdAt sql.NullString, checkedAt string) (*core.AgeEntry, error) {
	entry := &core.AgeEntry{Domain: domain}

	checked, err := time.Parse(time.RFC3339, checkedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse checked_at timestamp: %w", err)
	}
	entry.CheckedAt = checked

	if createdAt.Valid {
		created, err := time.Parse(time.RFC3339, createdAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}
		entry.CreatedAt = &created
	}

	return entry, nil
}
