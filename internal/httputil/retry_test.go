// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

// sequenceServer answers each request with the next status in statuses,
// repeating the last one, and records the request bodies.
type sequenceServer struct {
	mu       sync.Mutex
	statuses []int
	bodies   []string
}

func (s *sequenceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.bodies)
	s.bodies = append(s.bodies, string(data))
	w.WriteHeader(s.statuses[min(n, len(s.statuses)-1)])
}

func (s *sequenceServer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func TestRetrierDo(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int
	}{
		{"immediate success", []int{200}, 5, 200, 1},
		{"throttled then ok", []int{429, 503, 200}, 5, 200, 3},
		{"exhausts retries", []int{429}, 2, 429, 3},
		{"default retry budget", []int{429}, 0, 429, 4},
		{"server error is not retried", []int{500}, 0, 500, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &sequenceServer{statuses: tt.statuses}
			ts := httptest.NewServer(srv)
			defer ts.Close()

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := Retrier{Client: ts.Client(), MaxRetries: tt.maxRetries}.Do(context.Background(), req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, srv.calls())
		})
	}
}

func TestRetrierReplaysBody(t *testing.T) {
	srv := &sequenceServer{statuses: []int{429, 200}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	const payload = `{"query":"cursor team pricing"}`
	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(payload))
	require.NoError(t, err)

	resp, err := Retrier{Client: ts.Client()}.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{payload, payload}, srv.bodies)
}

func TestRetrierStopsWhenContextEnds(t *testing.T) {
	ts := httptest.NewServer(&sequenceServer{statuses: []int{503}})
	defer ts.Close()

	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = Retrier{Client: ts.Client()}.Do(ctx, req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoff(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, backoff(resp, 0))

	resp.Header.Set("Retry-After", "3600")
	assert.Equal(t, MaxRetryAfter, backoff(resp, 0))

	resp.Header.Set("Retry-After", "soon")
	assert.Equal(t, 2*RetryBaseDelay, backoff(resp, 1))

	resp.Header.Del("Retry-After")
	assert.Equal(t, 4*RetryBaseDelay, backoff(resp, 2))
}

func TestReadBodyLimits(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(strings.NewReader("  quota exceeded, try later  "))}
	assert.Equal(t, "quota", ReadBody(resp, 7))
}
