package completion

import (
	"context"
	"errors"
	"testing"
	"time"
)

// blockingClient waits for its context to die, then reports the cause.
type blockingClient struct{}

func (blockingClient) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// echoClient returns immediately.
type echoClient struct{}

func (echoClient) Complete(ctx context.Context, prompt string) (string, error) {
	return prompt, nil
}

func (echoClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return system + "|" + user, nil
}

func TestTimeoutClient_BoundsSlowCalls(t *testing.T) {
	c := NewTimeoutClient(blockingClient{}, 20*time.Millisecond)

	start := time.Now()
	_, err := c.Complete(context.Background(), "hello")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("call took %v, timeout did not bound it", elapsed)
	}

	_, err = c.CompleteWithSystem(context.Background(), "sys", "user")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("CompleteWithSystem err = %v, want DeadlineExceeded", err)
	}
}

func TestTimeoutClient_PassesThroughFastCalls(t *testing.T) {
	c := NewTimeoutClient(echoClient{}, time.Second)

	got, err := c.Complete(context.Background(), "prompt")
	if err != nil || got != "prompt" {
		t.Errorf("Complete = (%q, %v)", got, err)
	}

	got, err = c.CompleteWithSystem(context.Background(), "sys", "user")
	if err != nil || got != "sys|user" {
		t.Errorf("CompleteWithSystem = (%q, %v)", got, err)
	}
}

func TestTimeoutClient_RespectsCallerCancellation(t *testing.T) {
	c := NewTimeoutClient(blockingClient{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.Complete(ctx, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want Canceled", err)
	}
}

func TestNewTimeoutClient_DefaultsNonPositive(t *testing.T) {
	c := NewTimeoutClient(echoClient{}, 0)
	if c.timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s default", c.timeout)
	}
}
