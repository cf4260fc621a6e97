package completion

import (
	"context"
	"time"
)

// TimeoutClient decorates a Client with a per-call deadline. A call that
// exceeds the bound returns context.DeadlineExceeded instead of hanging,
// which routes into the same fallback paths as a malformed response.
type TimeoutClient struct {
	inner   Client
	timeout time.Duration
}

// NewTimeoutClient wraps inner; a non-positive timeout defaults to 30s.
func NewTimeoutClient(inner Client, timeout time.Duration) *TimeoutClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TimeoutClient{inner: inner, timeout: timeout}
}

func (c *TimeoutClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Complete(ctx, prompt)
}

func (c *TimeoutClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
}
