// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// RetryPolicy retries a completion until Accept approves the output or
// MaxAttempts is reached. It is independent of the Client so renderers can
// apply their own acceptance rules.
type RetryPolicy struct {
	MaxAttempts int
	Accept      func(string) bool
}

// MinLength accepts outputs with at least n characters after trimming.
func MinLength(n int) func(string) bool {
	return func(s string) bool {
		return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
	}
}

// Run calls c until an output is accepted. It returns the accepted output
// and true, or the last output (possibly empty) and false when every attempt
// was rejected. The error is the last client error when no attempt produced
// output at all; a cancelled context stops the loop.
func (p RetryPolicy) Run(ctx context.Context, c Client, req Request) (string, bool, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	accept := p.Accept
	if accept == nil {
		accept = func(s string) bool { return strings.TrimSpace(s) != "" }
	}

	var last string
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return last, false, err
		}
		out, err := c.Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		last = strings.TrimSpace(out)
		if accept(last) {
			return last, true, nil
		}
	}
	if last == "" && lastErr != nil {
		return "", false, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
	}
	return last, false, nil
}
