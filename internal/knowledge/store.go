// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists research evidence and question-to-answer
// mappings in SQLite and retrieves them by vector similarity.
//
// Store is the fact store workers consult before searching the web. Index,
// obtained from Store.Similarity, maps previously answered questions to the
// cache keys of their answers.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/textsim"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "knowledge.db"
)

// Embedder turns text into a vector. Vectors from different embedders are
// not comparable; a store should be used with one embedder for its lifetime.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store manages the knowledge SQLite database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
	embedder   Embedder
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithEmbedder sets the embedder. The default is textsim.Lexical.
func WithEmbedder(e Embedder) Option {
	return func(s *Store) { s.embedder = e }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore opens or creates the knowledge database at
// cfg.Dir/index/knowledge.db and creates the schema if it does not exist.
func NewStore(cfg types.KnowledgeConfig, opts ...Option) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		dir:        cfg.Dir,
		maxResults: maxResults,
		embedder:   textsim.Lexical{},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS facts (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			source TEXT,
			url TEXT,
			metadata TEXT,
			embedding BLOB,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_expires_at ON facts(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_source ON facts(source)`,
		`CREATE TABLE IF NOT EXISTS mappings (
			text TEXT NOT NULL,
			domain TEXT NOT NULL,
			cache_key TEXT NOT NULL,
			embedding BLOB,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			PRIMARY KEY (text, domain)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_domain ON mappings(domain, expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Stats holds row counts for the knowledge database.
type Stats struct {
	Facts        int `json:"facts" yaml:"facts"`
	ExpiredFacts int `json:"expired_facts" yaml:"expired_facts"`
	Mappings     int `json:"mappings" yaml:"mappings"`
}

// Stats counts live and expired rows.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	now := s.now().UnixNano()
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM facts WHERE expires_at > ?),
			(SELECT count(*) FROM facts WHERE expires_at <= ?),
			(SELECT count(*) FROM mappings WHERE expires_at > ?)`,
		now, now, now,
	).Scan(&st.Facts, &st.ExpiredFacts, &st.Mappings)
	if err != nil {
		return Stats{}, fmt.Errorf("counting rows: %w", err)
	}
	return st, nil
}

// Prune deletes expired facts and mappings and returns how many rows were
// removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixNano()
	var total int64
	for _, table := range []string{"facts", "mappings"} {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at <= ?`, now)
		if err != nil {
			return 0, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return total, nil
}
