// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textsim normalizes free text and compares it by vector similarity.
package textsim

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Dimensions is the length of vectors produced by Lexical.
const Dimensions = 512

var folder = cases.Fold()

// stopwords are dropped from keyword sets. They carry no intent.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "for": true,
	"to": true, "of": true, "in": true, "on": true, "with": true, "is": true,
	"are": true, "be": true, "my": true, "our": true, "we": true, "i": true,
	"me": true, "you": true, "it": true, "that": true, "this": true, "what": true,
	"which": true, "should": true, "can": true, "do": true, "does": true,
	"please": true, "best": true, "good": true, "some": true, "any": true,
	"recommend": true, "recommendation": true, "tool": true, "tools": true,
}

// Normalize applies NFKC, case folding, drops control characters, and
// collapses runs of whitespace.
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = folder.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits normalized text into word tokens. '+' and '#' are kept
// inside tokens so "c++" and "c#" survive.
func Tokenize(text string) []string {
	return strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#')
	})
}

// Keywords returns the sorted, deduplicated non-stopword tokens of text.
func Keywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range Tokenize(text) {
		if stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Lexical embeds text as an L2-normalized hashed bag of unigrams and
// bigrams. It needs no network access and is deterministic.
type Lexical struct{}

// Embed implements the embedder contract used by the knowledge stores.
func (Lexical) Embed(_ context.Context, text string) ([]float32, error) {
	return Vector(text), nil
}

// Vector returns the Lexical embedding of text.
func Vector(text string) []float32 {
	v := make([]float32, Dimensions)
	toks := Tokenize(text)
	for i, tok := range toks {
		if stopwords[tok] {
			continue
		}
		v[bucket(tok)] += 1
		if i+1 < len(toks) && !stopwords[toks[i+1]] {
			v[bucket(tok+" "+toks[i+1])] += 0.5
		}
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
	return v
}

func bucket(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() % Dimensions)
}

// Cosine returns the cosine similarity of a and b, or 0 when their lengths
// differ or either is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// EncodeVector serializes v as little-endian float32s for BLOB storage.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector. Trailing bytes that do not
// form a whole float are ignored.
func DecodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
