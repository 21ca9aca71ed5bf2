// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/textsim"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// EvidenceID derives the content-addressed ID of a piece of evidence, so
// writing the same text from the same URL twice updates one row.
func EvidenceID(text, url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text) + "\x00" + url))
	return hex.EncodeToString(sum[:16])
}

// Add upserts evidence with the given time-to-live. Re-adding existing
// evidence refreshes its expiry and metadata. Items whose embedding fails
// are skipped and logged.
func (s *Store) Add(ctx context.Context, evidence []types.Evidence, ttl time.Duration) error {
	type row struct {
		ev  types.Evidence
		vec []byte
	}

	now := s.now()
	rows := make([]row, 0, len(evidence))
	for _, ev := range evidence {
		if strings.TrimSpace(ev.Text) == "" {
			continue
		}
		vec, err := s.embedder.Embed(ctx, ev.Text)
		if err != nil {
			s.logger.Warn("embedding evidence failed", zap.String("url", ev.URL), zap.Error(err))
			continue
		}
		if ev.ID == "" {
			ev.ID = EvidenceID(ev.Text, ev.URL)
		}
		rows = append(rows, row{ev: ev, vec: textsim.EncodeVector(vec)})
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO facts (id, text, source, url, metadata, embedding, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			metadata=excluded.metadata, embedding=excluded.embedding,
			expires_at=excluded.expires_at`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	expires := now.Add(ttl).UnixNano()
	for _, r := range rows {
		metaJSON, _ := json.Marshal(r.ev.Metadata)
		_, err := stmt.ExecContext(ctx,
			r.ev.ID, r.ev.Text, r.ev.Source, r.ev.URL, string(metaJSON),
			r.vec, now.UnixNano(), expires,
		)
		if err != nil {
			return fmt.Errorf("inserting fact %s: %w", r.ev.ID, err)
		}
	}

	return tx.Commit()
}

// Search returns up to topK unexpired facts whose similarity to text is at
// least threshold, most similar first. topK <= 0 uses the store default.
func (s *Store) Search(ctx context.Context, text string, topK int, threshold float64) ([]types.Evidence, error) {
	if topK <= 0 {
		topK = s.maxResults
	}
	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	all, err := s.load(ctx, false, true)
	if err != nil {
		return nil, err
	}

	var hits []types.Evidence
	for _, l := range all {
		score := textsim.Cosine(query, l.vec)
		if score < threshold {
			continue
		}
		l.ev.Score = score
		hits = append(hits, l.ev)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// List returns stored facts ordered by creation time. Expired facts are
// included only when includeExpired is set.
func (s *Store) List(ctx context.Context, includeExpired bool) ([]types.Evidence, error) {
	all, err := s.load(ctx, includeExpired, false)
	if err != nil {
		return nil, err
	}
	out := make([]types.Evidence, len(all))
	for i, l := range all {
		out[i] = l.ev
	}
	return out, nil
}

type loaded struct {
	ev  types.Evidence
	vec []float32
}

func (s *Store) load(ctx context.Context, includeExpired, withVectors bool) ([]loaded, error) {
	q := `SELECT id, text, source, url, metadata, embedding, created_at, expires_at FROM facts`
	var args []any
	if !includeExpired {
		q += ` WHERE expires_at > ?`
		args = append(args, s.now().UnixNano())
	}
	q += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying facts: %w", err)
	}
	defer rows.Close()

	var out []loaded
	for rows.Next() {
		var (
			l                  loaded
			source, url, meta  sql.NullString
			blob               []byte
			created, expiresAt int64
		)
		if err := rows.Scan(&l.ev.ID, &l.ev.Text, &source, &url, &meta, &blob, &created, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		l.ev.Source = source.String
		l.ev.URL = url.String
		if meta.Valid && meta.String != "" && meta.String != "null" {
			if err := json.Unmarshal([]byte(meta.String), &l.ev.Metadata); err != nil {
				s.logger.Debug("ignoring unreadable fact metadata", zap.String("id", l.ev.ID), zap.Error(err))
				l.ev.Metadata = nil
			}
		}
		l.ev.CreatedAt = time.Unix(0, created).UTC()
		l.ev.ExpiresAt = time.Unix(0, expiresAt).UTC()
		if withVectors {
			l.vec = textsim.DecodeVector(blob)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
