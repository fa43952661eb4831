package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the AgeStore interface
type MySQLCache struct {
	db     *sql.DB
	logger *zap.Logger
	ttl    time.Duration
	stopCh chan struct{}
	once   sync.Once
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, ttl, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Timestamps are stored as RFC3339 text, the same as the SQLite backend
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_age (
			domain VARCHAR(255) PRIMARY KEY,
			created_at VARCHAR(32) NULL,
			checked_at VARCHAR(32) NOT NULL,
			INDEX idx_checked_at (checked_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
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
func (c *MySQLCache) Get(ctx context.Context, domain string) (*core.AgeEntry, error) {
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
func (c *MySQLCache) Set(ctx context.Context, entry *core.AgeEntry) error {
	createdAt, checkedAt := encodeEntry(entry)

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO domain_age (domain, created_at, checked_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			created_at = VALUES(created_at),
			checked_at = VALUES(checked_at)
	`, entry.Domain, createdAt, checkedAt)

	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}

	return nil
}

// Cleanup removes entries checked longer than ttl ago
func (c *MySQLCache) Cleanup(ctx context.Context) error {
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
func (c *MySQLCache) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close MySQL database", zap.Error(err))
		}
	})
}
