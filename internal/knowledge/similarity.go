// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/advisor-engine/internal/textsim"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// Index maps question text to the cache key of its answer.
type Index struct {
	s *Store
}

// Similarity returns the question index sharing this store's database.
func (s *Store) Similarity() *Index {
	return &Index{s: s}
}

// AddMapping records that text, asked in domain, was answered under key.
func (x *Index) AddMapping(ctx context.Context, text, key, domain string, ttl time.Duration) error {
	text = strings.TrimSpace(text)
	if text == "" || key == "" {
		return nil
	}
	vec, err := x.s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding question: %w", err)
	}
	now := x.s.now()
	_, err = x.s.db.ExecContext(ctx,
		`INSERT INTO mappings (text, domain, cache_key, embedding, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(text, domain) DO UPDATE SET
			cache_key=excluded.cache_key, embedding=excluded.embedding,
			created_at=excluded.created_at, expires_at=excluded.expires_at`,
		text, domain, key, textsim.EncodeVector(vec), now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upserting mapping: %w", err)
	}
	return nil
}

// Search returns the unexpired mapping in domain most similar to text, if
// its similarity reaches threshold.
func (x *Index) Search(ctx context.Context, text, domain string, threshold float64) (types.SimilarMatch, bool, error) {
	query, err := x.s.embedder.Embed(ctx, text)
	if err != nil {
		return types.SimilarMatch{}, false, fmt.Errorf("embedding question: %w", err)
	}

	rows, err := x.s.db.QueryContext(ctx,
		`SELECT text, cache_key, embedding FROM mappings
		 WHERE domain = ? AND expires_at > ?
		 ORDER BY created_at DESC`,
		domain, x.s.now().UnixNano(),
	)
	if err != nil {
		return types.SimilarMatch{}, false, fmt.Errorf("querying mappings: %w", err)
	}
	defer rows.Close()

	var (
		best  types.SimilarMatch
		found bool
	)
	for rows.Next() {
		var (
			m    types.SimilarMatch
			blob []byte
		)
		if err := rows.Scan(&m.Text, &m.CacheKey, &blob); err != nil {
			return types.SimilarMatch{}, false, fmt.Errorf("scanning row: %w", err)
		}
		m.Similarity = textsim.Cosine(query, textsim.DecodeVector(blob))
		if m.Similarity >= threshold && (!found || m.Similarity > best.Similarity) {
			best, found = m, true
		}
	}
	if err := rows.Err(); err != nil {
		return types.SimilarMatch{}, false, err
	}
	return best, found, nil
}
