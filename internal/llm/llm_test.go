// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

type fakeModels struct {
	replies []string
	errs    []error
	calls   int
	config  *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.config = config
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.replies) {
		text = f.replies[i]
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}}},
	}, nil
}

func TestGeminiComplete(t *testing.T) {
	fm := &fakeModels{replies: []string{`{"ok":true}`}}
	g := newGemini(fm, types.AIConfig{}, nil)

	out, err := g.Complete(context.Background(), Request{System: "be terse", Prompt: "hi", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "application/json", fm.config.ResponseMIMEType)
	assert.Equal(t, int32(defaultMaxTokens), fm.config.MaxOutputTokens)
	require.NotNil(t, fm.config.SystemInstruction)
}

func TestGeminiRetriesErrorsAndEmpty(t *testing.T) {
	fm := &fakeModels{
		errs:    []error{errors.New("unavailable"), nil, nil},
		replies: []string{"", "", "finally"},
	}
	g := newGemini(fm, types.AIConfig{MaxRetries: 3}, nil)

	out, err := g.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "finally", out)
	assert.Equal(t, 3, fm.calls)
}

func TestGeminiExhaustsRetries(t *testing.T) {
	fm := &fakeModels{}
	g := newGemini(fm, types.AIConfig{MaxRetries: 2}, nil)

	_, err := g.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 3, fm.calls)
}

func TestRetryPolicy(t *testing.T) {
	tests := []struct {
		name       string
		replies    []string
		policy     RetryPolicy
		want       string
		wantOK     bool
		wantCalls  int
		wantErrNil bool
	}{
		{
			name:       "accepts first long enough",
			replies:    []string{"short", "this one is long enough"},
			policy:     RetryPolicy{MaxAttempts: 3, Accept: MinLength(10)},
			want:       "this one is long enough",
			wantOK:     true,
			wantCalls:  2,
			wantErrNil: true,
		},
		{
			name:       "returns last output when exhausted",
			replies:    []string{"a", "bb"},
			policy:     RetryPolicy{MaxAttempts: 2, Accept: MinLength(10)},
			want:       "bb",
			wantOK:     false,
			wantCalls:  2,
			wantErrNil: true,
		},
		{
			name:       "zero attempts means one",
			replies:    []string{"anything"},
			policy:     RetryPolicy{},
			want:       "anything",
			wantOK:     true,
			wantCalls:  1,
			wantErrNil: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c := ClientFunc(func(context.Context, Request) (string, error) {
				r := tt.replies[calls]
				calls++
				return r, nil
			})
			got, ok, err := tt.policy.Run(context.Background(), c, Request{})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantErrNil, err == nil)
		})
	}
}

func TestRetryPolicyAllErrors(t *testing.T) {
	boom := errors.New("boom")
	c := ClientFunc(func(context.Context, Request) (string, error) { return "", boom })
	_, ok, err := RetryPolicy{MaxAttempts: 2}.Run(context.Background(), c, Request{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestRetryPolicyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := ClientFunc(func(context.Context, Request) (string, error) {
		t.Fatal("client called after cancellation")
		return "", nil
	})
	_, _, err := RetryPolicy{MaxAttempts: 3}.Run(ctx, c, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"name\":\"Cursor\"}\n```", &v))
	assert.Equal(t, "Cursor", v.Name)

	require.NoError(t, DecodeJSON(`Here you go: {"name":"Tabnine"}`, &v))
	assert.Equal(t, "Tabnine", v.Name)

	assert.ErrorIs(t, DecodeJSON("   ", &v), ErrEmptyResponse)
	assert.Error(t, DecodeJSON("not json", &v))
}

func TestCompleteJSONSetsFlag(t *testing.T) {
	var sawJSON bool
	c := ClientFunc(func(_ context.Context, req Request) (string, error) {
		sawJSON = req.JSON
		return `{"n":2}`, nil
	})
	var v struct{ N int }
	require.NoError(t, CompleteJSON(context.Background(), c, Request{Prompt: "x"}, &v))
	assert.True(t, sawJSON)
	assert.Equal(t, 2, v.N)
}
