// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

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

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// SQLiteCache persists answers in a SQLite database.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCache opens or creates the cache database at path.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS answers (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteCache{db: db, now: time.Now}, nil
}

// Close releases the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Get returns the answer stored under key, if present and unexpired.
func (c *SQLiteCache) Get(ctx context.Context, key string) (types.CachedAnswer, bool, error) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM answers WHERE key = ? AND expires_at > ?`,
		key, c.now().UnixNano(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CachedAnswer{}, false, nil
	}
	if err != nil {
		return types.CachedAnswer{}, false, fmt.Errorf("reading cache entry: %w", err)
	}

	var answer types.CachedAnswer
	if err := json.Unmarshal([]byte(payload), &answer); err != nil {
		return types.CachedAnswer{}, false, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	return answer, true, nil
}

// Set stores answer under key for ttl, replacing any previous entry.
func (c *SQLiteCache) Set(ctx context.Context, key string, answer types.CachedAnswer, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := c.now()
	if answer.StoredAt.IsZero() {
		answer.StoredAt = now
	}
	payload, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO answers (key, payload, stored_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			payload=excluded.payload, stored_at=excluded.stored_at, expires_at=excluded.expires_at`,
		key, string(payload), now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Stats counts live and expired entries.
func (c *SQLiteCache) Stats(ctx context.Context) (Stats, error) {
	now := c.now().UnixNano()
	st := Stats{Backend: "sqlite"}
	err := c.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM answers WHERE expires_at > ?),
			(SELECT count(*) FROM answers WHERE expires_at <= ?)`,
		now, now,
	).Scan(&st.Entries, &st.Expired)
	if err != nil {
		return Stats{}, fmt.Errorf("counting cache entries: %w", err)
	}
	return st, nil
}

// Clear deletes every entry.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM answers`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}
