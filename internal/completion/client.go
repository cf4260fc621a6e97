// Package completion wraps the external text-completion capability. The
// service is consumed as an untrusted black box: callers must tolerate
// prose-wrapped JSON, truncation, latency, and nonsense, and every call is
// bounded by a timeout so a hung request becomes an error instead of a
// stuck goroutine.
package completion

import "context"

// Client is the minimal interface the router uses to call the completion
// service.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
