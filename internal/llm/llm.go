// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm defines the completion collaborator used for classification,
// normalization, planning, extraction and narrative rendering, a Gemini
// implementation, and a retry policy that accepts or rejects outputs
// independently of the client.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is one completion call.
type Request struct {
	// System is the system instruction. Optional.
	System string

	// Prompt is the user content.
	Prompt string

	// JSON requests an application/json response.
	JSON bool

	// MaxTokens caps the output. Zero uses the client default.
	MaxTokens int
}

// Client produces a completion for a request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// CompleteJSON requests JSON output and decodes it into out. Markdown code
// fences around the payload are tolerated.
func CompleteJSON(ctx context.Context, c Client, req Request, out any) error {
	req.JSON = true
	text, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(text, out)
}

// DecodeJSON unmarshals a model response into out after stripping code
// fences and any prose before the first brace.
func DecodeJSON(text string, out any) error {
	payload := StripFences(text)
	if payload == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decoding model JSON: %w", err)
	}
	return nil
}

// StripFences removes a surrounding ```json fence and leading prose.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	return s
}
