// Package cache provides the local persistent cache that backs every
// collection while offline.
//
// The cache is a single SQLite table of JSON documents keyed by collection
// name (electripro-prices, electripro-budgets, ...). It runs in embedded mode
// with WAL so the dashboard can read while the CLI or daemon writes.
//
// Reads and writes never fail from the caller's point of view: a storage or
// decoding problem is logged at warn level and the entry is treated as
// absent on read, or the write is skipped. Only Open can return an error.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"
)

// Namespace prefixes every key owned by electripro.
const Namespace = "electripro-"

// Cache is the SQLite-backed key/value store.
type Cache struct {
	conn *sql.DB
	path string
	log  zerolog.Logger
}

// Open creates or opens the cache database at path and initialises its
// schema.
//
// The caller MUST call Close() when done so the WAL is checkpointed.
//
// Example:
//
//	c, err := cache.Open(".electripro/cache.db", logger)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
func Open(path string, logger zerolog.Logger) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	c := &Cache{
		conn: conn,
		path: path,
		log:  logger.With().Str("component", "cache").Logger(),
	}

	if _, err := c.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := c.InitSchema(); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Path returns the database file location.
func (c *Cache) Path() string {
	return c.path
}

// Close checkpoints the WAL and closes the connection.
func (c *Cache) Close() error {
	if c.conn == nil {
		return nil
	}

	if _, err := c.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		c.log.Warn().Err(err).Msg("failed to checkpoint WAL")
	}

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}

	c.conn = nil
	return nil
}

// InitSchema creates the entries table. Safe to call repeatedly.
func (c *Cache) InitSchema() error {
	return c.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the entries table with context support.
func (c *Cache) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := c.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// Get returns the collection stored under key. The second result is false
// when the entry is missing or cannot be decoded as a JSON array.
func (c *Cache) Get(key string) ([]json.RawMessage, bool) {
	raw, ok := c.Raw(key)
	if !ok {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable collection")
		return nil, false
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, true
}

// Set replaces the collection stored under key.
func (c *Cache) Set(key string, items []json.RawMessage) {
	if items == nil {
		items = []json.RawMessage{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to encode collection")
		return
	}
	c.SetRaw(key, data)
}

// GetObject returns the single JSON object stored under key.
func (c *Cache) GetObject(key string) (json.RawMessage, bool) {
	raw, ok := c.Raw(key)
	if !ok {
		return nil, false
	}
	if !json.Valid(raw) || raw[0] != '{' {
		c.log.Warn().Str("key", key).Msg("discarding unreadable object")
		return nil, false
	}
	return json.RawMessage(raw), true
}

// SetObject stores a single JSON object under key.
func (c *Cache) SetObject(key string, obj json.RawMessage) {
	if !json.Valid(obj) {
		c.log.Warn().Str("key", key).Msg("refusing to store invalid JSON object")
		return
	}
	c.SetRaw(key, obj)
}

// Raw returns the stored bytes for key without decoding them.
func (c *Cache) Raw(key string) ([]byte, bool) {
	if c.conn == nil {
		return nil, false
	}

	var value string
	err := c.conn.QueryRow(`SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil, false
	}
	if value == "" {
		return nil, false
	}
	return []byte(value), true
}

// SetRaw stores data under key as is.
func (c *Cache) SetRaw(key string, data []byte) {
	if c.conn == nil {
		c.log.Warn().Str("key", key).Msg("cache closed, write skipped")
		return
	}

	query := `
	INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	_, err := c.conn.Exec(query, key, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Delete removes key. Missing keys are ignored.
func (c *Cache) Delete(key string) {
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// Keys lists the stored keys starting with prefix, sorted.
func (c *Cache) Keys(prefix string) []string {
	if c.conn == nil {
		return nil
	}

	rows, err := c.conn.Query(`SELECT key FROM entries WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache key listing failed")
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			c.log.Warn().Err(err).Msg("cache key scan failed")
			return keys
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache key iteration failed")
	}
	return keys
}
