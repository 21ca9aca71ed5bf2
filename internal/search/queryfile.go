// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// QueryFile is the on-disk form of a search and its results, so a search
// can be saved and shown again without re-querying the backend.
type QueryFile struct {
	Query    string               `yaml:"query"`
	Config   QueryFileConfig      `yaml:"config"`
	Response types.SearchResponse `yaml:"response"`
	Summary  QuerySummary         `yaml:"summary"`
}

// QueryFileConfig stores the parameters that produced the results.
type QueryFileConfig struct {
	MaxResults int    `yaml:"max_results"`
	Depth      string `yaml:"depth,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total     int       `yaml:"total"`
	Official  int       `yaml:"official"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves resp and the parameters that produced it to path.
func WriteQueryFile(path string, resp types.SearchResponse, maxResults int, depth string, at time.Time) error {
	qf := QueryFile{
		Query:    resp.Query,
		Config:   QueryFileConfig{MaxResults: maxResults, Depth: depth},
		Response: resp,
		Summary:  QuerySummary{Total: len(resp.Results), Timestamp: at},
	}
	for _, r := range resp.Results {
		if r.Official {
			qf.Summary.Official++
		}
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}
