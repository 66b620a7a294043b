package datasource

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goccy/go-json"

	"github.com/vhp4safety/aopgraph/pkg/model"
)

// Cache is a read-through SQLite cache of fetched network fragments,
// keyed by (query type, value). It lets a hide/show toggle reuse elements
// without refetching; the merge engine dedupes anything stale.
type Cache struct {
	db     *sql.DB
	maxAge time.Duration
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxAge expires cached fragments older than d. Zero (the default)
// means entries never expire.
func WithMaxAge(d time.Duration) CacheOption {
	return func(c *Cache) { c.maxAge = d }
}

// OpenCache opens (creating if needed) the fragment cache at path.
func OpenCache(path string, opts ...CacheOption) (*Cache, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open fragment cache: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS fragments (
			query_type TEXT NOT NULL,
			value      TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			elements   TEXT NOT NULL,
			PRIMARY KEY (query_type, value)
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing fragment cache: %w", err)
	}

	c := &Cache{db: db}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached elements for a query, if present and fresh.
func (c *Cache) Get(queryType, value string) ([]model.RawElement, bool) {
	var fetchedAt time.Time
	var blob string
	err := c.db.QueryRow(
		`SELECT fetched_at, elements FROM fragments WHERE query_type = ? AND value = ?`,
		queryType, value,
	).Scan(&fetchedAt, &blob)
	if err != nil {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(fetchedAt) > c.maxAge {
		return nil, false
	}
	var els []model.RawElement
	if err := json.Unmarshal([]byte(blob), &els); err != nil {
		return nil, false
	}
	return els, true
}

// Put stores (or replaces) the cached elements for a query.
func (c *Cache) Put(queryType, value string, els []model.RawElement) error {
	blob, err := json.Marshal(els)
	if err != nil {
		return fmt.Errorf("encoding fragment: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO fragments (query_type, value, fetched_at, elements) VALUES (?, ?, ?, ?)`,
		queryType, value, time.Now().UTC(), string(blob),
	)
	if err != nil {
		return fmt.Errorf("writing fragment cache: %w", err)
	}
	return nil
}

// Purge drops every cached fragment.
func (c *Cache) Purge() error {
	_, err := c.db.Exec(`DELETE FROM fragments`)
	return err
}
