// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"fold and trim", "  Best CODE Review  ", "best code review"},
		{"fullwidth", "ＧｉｔＨｕｂ", "github"},
		{"collapse", "a\t\tb\n c", "a b c"},
		{"control", "a\x00b", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestTokenizeKeepsLanguageNames(t *testing.T) {
	assert.Equal(t, []string{"c++", "and", "c#", "tools"}, Tokenize("C++ and C#, tools!"))
}

func TestKeywordsSortedWithoutStopwords(t *testing.T) {
	got := Keywords("Recommend the best code review tool for Python and Python teams")
	assert.Equal(t, []string{"code", "python", "review", "teams"}, got)
}

func TestKeywordsParaphrasesCollide(t *testing.T) {
	a := Keywords("code review for python teams")
	b := Keywords("Python teams: code review?")
	assert.Equal(t, a, b)
}

func TestVectorSimilarity(t *testing.T) {
	base := Vector("AI code review tool for a python team")
	near := Vector("python team AI code review")
	far := Vector("cheap flights to lisbon in may")

	assert.Greater(t, Cosine(base, near), 0.6)
	assert.Less(t, Cosine(base, far), 0.2)
	assert.InDelta(t, 1.0, Cosine(base, base), 1e-6)
}

func TestVectorEmptyText(t *testing.T) {
	v := Vector("   ")
	require.Len(t, v, Dimensions)
	assert.Equal(t, 0.0, Cosine(v, v))
}

func TestCosineMismatchedLengths(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestEncodeDecodeVector(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e-7}
	assert.Equal(t, v, DecodeVector(EncodeVector(v)))
	assert.Len(t, DecodeVector([]byte{1, 2, 3}), 0)
}

func TestLexicalEmbed(t *testing.T) {
	v, err := Lexical{}.Embed(context.Background(), "github copilot")
	require.NoError(t, err)
	assert.Equal(t, Vector("github copilot"), v)
}
