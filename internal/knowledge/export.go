// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds one fact for export.
type ExportEntry struct {
	ID        string            `json:"id" yaml:"id"`
	Text      string            `json:"text" yaml:"text"`
	Source    string            `json:"source" yaml:"source"`
	URL       string            `json:"url,omitempty" yaml:"url,omitempty"`
	Official  bool              `json:"official" yaml:"official"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ExpiresAt time.Time         `json:"expires_at" yaml:"expires_at"`
}

// ExportYAML writes live facts to dir/index/export.yaml and returns the path.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes live facts to dir/index/export.json and returns the path.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	facts, err := s.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(facts))
	for i, f := range facts {
		entries[i] = ExportEntry{
			ID:        f.ID,
			Text:      f.Text,
			Source:    f.Source,
			URL:       f.URL,
			Official:  f.Metadata["is_official"] == "true",
			Metadata:  f.Metadata,
			ExpiresAt: f.ExpiresAt,
		}
	}
	return entries, nil
}
