// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session persists a conversation as a YAML file so history carries
// across CLI invocations. The router writes a checkpoint after research and
// another before rendering.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

const (
	// maxCheckpoints bounds the checkpoint log kept in a session file.
	maxCheckpoints = 20

	// stagePreRender matches the router's final checkpoint stage.
	stagePreRender = "pre_render"
)

// Checkpoint is the turn state recorded at one stage.
type Checkpoint struct {
	Stage      string                `yaml:"stage"`
	TurnID     string                `yaml:"turn_id"`
	At         time.Time             `yaml:"at"`
	CacheKey   string                `yaml:"cache_key,omitempty"`
	Brief      *types.Brief          `yaml:"brief,omitempty"`
	Context    *types.UserContext    `yaml:"user_context,omitempty"`
	Findings   *types.Findings       `yaml:"findings,omitempty"`
	Facts      []types.CandidateFact `yaml:"facts,omitempty"`
	Decision   *types.DecisionResult `yaml:"decision,omitempty"`
	Researched bool                  `yaml:"researched"`
}

// Session is the persisted conversation.
type Session struct {
	ID          string          `yaml:"id"`
	Domain      string          `yaml:"domain,omitempty"`
	Created     time.Time       `yaml:"created"`
	Updated     time.Time       `yaml:"updated"`
	Messages    []types.Message `yaml:"messages"`
	Checkpoints []Checkpoint    `yaml:"checkpoints,omitempty"`
}

// File is a session bound to a path. It is safe for concurrent use.
type File struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	sess Session
}

// Open loads the session at path, or starts a new one when the file does
// not exist.
func Open(path string) (*File, error) {
	f := &File{path: path, now: time.Now}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		now := f.now()
		f.sess = Session{ID: uuid.NewString(), Created: now, Updated: now}
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.sess); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", path, err)
	}
	if f.sess.ID == "" {
		f.sess.ID = uuid.NewString()
	}
	return f, nil
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Snapshot returns a copy of the session.
func (f *File) Snapshot() Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sess
	s.Messages = append([]types.Message(nil), f.sess.Messages...)
	s.Checkpoints = append([]Checkpoint(nil), f.sess.Checkpoints...)
	return s
}

// History returns the conversation so far.
func (f *File) History() []types.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Message(nil), f.sess.Messages...)
}

// Checkpoint records st at stage and saves the file. The pre-render
// checkpoint replaces the message history with the turn's messages.
func (f *File) Checkpoint(_ context.Context, stage string, st *types.TurnState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := Checkpoint{
		Stage:      stage,
		TurnID:     st.ID,
		At:         f.now(),
		CacheKey:   st.CacheKey,
		Brief:      st.Brief,
		Facts:      st.Facts,
		Decision:   st.Decision,
		Researched: st.Researched,
	}
	if st.Researched {
		findings := st.Findings
		uc := st.Context.Clone()
		cp.Findings = &findings
		cp.Context = &uc
	}
	if stage == stagePreRender {
		f.sess.Messages = append([]types.Message(nil), st.Messages...)
	}
	if f.sess.Domain == "" {
		f.sess.Domain = st.Domain
	}
	f.sess.Checkpoints = append(f.sess.Checkpoints, cp)
	if n := len(f.sess.Checkpoints); n > maxCheckpoints {
		f.sess.Checkpoints = f.sess.Checkpoints[n-maxCheckpoints:]
	}
	f.sess.Updated = cp.At
	return f.save()
}

// save replaces the file atomically through a temporary file.
func (f *File) save() error {
	data, err := yaml.Marshal(&f.sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating session directory: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing session: %w", err)
	}
	return nil
}
