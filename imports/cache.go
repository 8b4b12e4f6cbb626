package imports

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	// SQLite driver
	_ "modernc.org/sqlite"
)

// Cache stores canonically encoded normal forms keyed by semantic hash.
// A hit is always safe to reuse: the key commits to the content.
type Cache interface {
	// Get returns the encoded expression for hash, or found=false on a miss.
	Get(ctx context.Context, hash []byte) (data []byte, found bool, err error)
	// Put stores the encoded expression under hash.
	Put(ctx context.Context, hash []byte, data []byte) error
	Close() error
}

// MemoryCache is a process-local cache. The zero value is ready to use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string][]byte{}}
}

func (c *MemoryCache) Get(ctx context.Context, hash []byte) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, found := c.entries[string(hash)]
	return data, found, nil
}

func (c *MemoryCache) Put(ctx context.Context, hash []byte, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[string(hash)] = data
	return nil
}

func (c *MemoryCache) Close() error { return nil }

// SQLiteCache persists resolved expressions across processes.
type SQLiteCache struct {
	db   *sql.DB
	path string
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS expressions (
	hash       TEXT PRIMARY KEY,
	content    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);`

// OpenSQLiteCache opens (creating if necessary) the cache database at path.
func OpenSQLiteCache(ctx context.Context, path string) (*SQLiteCache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}
	if _, err := db.ExecContext(ctx, cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &SQLiteCache{db: db, path: path}, nil
}

func (c *SQLiteCache) Get(ctx context.Context, hash []byte) ([]byte, bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT content FROM expressions WHERE hash = ?",
		hex.EncodeToString(hash)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}
	return data, true, nil
}

func (c *SQLiteCache) Put(ctx context.Context, hash []byte, data []byte) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO expressions (hash, content, created_at) VALUES (?, ?, ?)",
		hex.EncodeToString(hash), data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache store failed: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
