package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"verdure/internal/rules"
	"verdure/internal/scoring"
	"verdure/internal/types"
)

// scriptedClient returns canned responses in order, recording every prompt.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     []string
}

func (c *scriptedClient) next(prompt string) (string, error) {
	i := len(c.calls)
	c.calls = append(c.calls, prompt)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", errors.New("scripted client exhausted")
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.next(prompt)
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return c.next(system + "\n" + user)
}

// staticFeed serves a fixed slice or a fixed error.
type staticFeed struct {
	items []types.Notification
	err   error
}

func (f staticFeed) ActiveNotifications(ctx context.Context) ([]types.Notification, error) {
	return f.items, f.err
}

func newTestRouter(client *scriptedClient, feed Feed) (*Router, *rules.Store) {
	store := rules.NewStore(rules.NopPersister{})
	engine := scoring.NewEngine(scoring.DefaultConfig())
	return New(store, engine, client, feed, DefaultConfig()), store
}

func classifyAs(intent string) string {
	return fmt.Sprintf(`{"intent": %q, "confidence": "high"}`, intent)
}

func freshNotifications(n int) []types.Notification {
	now := time.Now().UnixMilli()
	items := make([]types.Notification, n)
	for i := range items {
		items[i] = types.Notification{
			ID: int64(i + 1), AppName: "Gmail",
			Title:     fmt.Sprintf("Message %d", i+1),
			Text:      "urgent please reply",
			Timestamp: now,
		}
	}
	return items
}

func TestHandle_QueryPath(t *testing.T) {
	client := &scriptedClient{responses: []string{
		classifyAs("query"),
		"Your most urgent notification is the Gmail message.",
	}}
	r, _ := newTestRouter(client, staticFeed{items: freshNotifications(3)})

	got := r.Handle(context.Background(), "what's urgent?")

	if got != "Your most urgent notification is the Gmail message." {
		t.Errorf("Handle() = %q, want the synthesis verbatim", got)
	}
	if len(client.calls) != 2 {
		t.Fatalf("made %d completion calls, want 2", len(client.calls))
	}
	if !strings.Contains(client.calls[1], "what's urgent?") {
		t.Error("query prompt should embed the user request")
	}
	if !strings.Contains(client.calls[1], "Message 1") {
		t.Error("query prompt should embed ranked notifications")
	}
}

func TestHandle_QueryCapsPromptItems(t *testing.T) {
	client := &scriptedClient{responses: []string{classifyAs("query"), "ok"}}
	r, _ := newTestRouter(client, staticFeed{items: freshNotifications(20)})

	r.Handle(context.Background(), "summarize my notifications")

	prompt := client.calls[1]
	for i := 1; i <= 8; i++ {
		if !strings.Contains(prompt, fmt.Sprintf("Message %d", i)) {
			t.Errorf("prompt missing top-ranked Message %d", i)
		}
	}
	if strings.Contains(prompt, "Message 9") {
		t.Error("prompt should stop at the item limit")
	}
}

func TestHandle_QueryFeedFailureStillAnswers(t *testing.T) {
	client := &scriptedClient{responses: []string{classifyAs("query"), "Nothing to report."}}
	r, _ := newTestRouter(client, staticFeed{err: errors.New("listener down")})

	got := r.Handle(context.Background(), "anything new?")

	if got != "Nothing to report." {
		t.Errorf("Handle() = %q, broken feed should still answer", got)
	}
	if !strings.Contains(client.calls[1], "(none)") {
		t.Error("prompt should state that no notifications are available")
	}
}

func TestHandle_QuerySynthesisFailureFallsBack(t *testing.T) {
	client := &scriptedClient{
		responses: []string{classifyAs("query"), ""},
		errs:      []error{nil, errors.New("timeout")},
	}
	r, _ := newTestRouter(client, staticFeed{items: freshNotifications(1)})

	if got := r.Handle(context.Background(), "what's up?"); got != fallbackQuery {
		t.Errorf("Handle() = %q, want fixed query fallback", got)
	}
}

func TestHandle_RerankPath(t *testing.T) {
	client := &scriptedClient{responses: []string{
		classifyAs("rerank"),
		`{"add_high_priority_apps": ["Discord"], "confirmation": "Discord is now high priority."}`,
	}}
	r, store := newTestRouter(client, staticFeed{})

	got := r.Handle(context.Background(), "prioritize Discord")

	if got != "Discord is now high priority." {
		t.Errorf("Handle() = %q, want the model's confirmation", got)
	}
	apps := store.Load().Rules.HighPriorityApps
	if len(apps) != 1 || apps[0] != "Discord" {
		t.Errorf("HighPriorityApps = %v, want exactly [Discord]", apps)
	}
	if len(client.calls) != 2 {
		t.Errorf("made %d completion calls, want 2", len(client.calls))
	}
}

func TestHandle_RerankDefaultConfirmation(t *testing.T) {
	client := &scriptedClient{responses: []string{
		classifyAs("rerank"),
		`{"add_keywords": ["invoice"]}`,
	}}
	r, _ := newTestRouter(client, staticFeed{})

	if got := r.Handle(context.Background(), "watch for invoices"); got != defaultConfirmation {
		t.Errorf("Handle() = %q, want default confirmation", got)
	}
}

func TestHandle_RerankEmptyDeltaAsksToClarify(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no json", "I'd suggest checking your settings!"},
		{"empty delta", `{"confirmation": "sure"}`},
		{"only invalid entries", `{"add_domains": ["whatsapp"], "add_keywords": ["  "]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{responses: []string{classifyAs("rerank"), tt.response}}
			r, store := newTestRouter(client, staticFeed{})

			if got := r.Handle(context.Background(), "make it better"); got != clarifyRerank {
				t.Errorf("Handle() = %q, want clarification request", got)
			}
			if kw := store.Load().Rules; len(kw.Keywords) != 0 || len(kw.Domains) != 0 {
				t.Errorf("empty delta must not mutate rules: %+v", kw)
			}
		})
	}
}

func TestHandle_RerankDropsInvalidDomainKeepsRest(t *testing.T) {
	client := &scriptedClient{responses: []string{
		classifyAs("rerank"),
		`{"add_domains": ["whatsapp", ".edu"], "confirmation": "Watching .edu mail."}`,
	}}
	r, store := newTestRouter(client, staticFeed{})

	if got := r.Handle(context.Background(), "flag school emails"); got != "Watching .edu mail." {
		t.Errorf("Handle() = %q", got)
	}
	domains := store.Load().Rules.Domains
	if len(domains) != 1 || domains[0] != ".edu" {
		t.Errorf("Domains = %v, want exactly [.edu]", domains)
	}
}

func TestHandle_ChatPath(t *testing.T) {
	client := &scriptedClient{responses: []string{
		classifyAs("chat"),
		"Hi! I watch your notifications so you don't have to.",
	}}
	r, _ := newTestRouter(client, staticFeed{})

	got := r.Handle(context.Background(), "hello there")
	if got != "Hi! I watch your notifications so you don't have to." {
		t.Errorf("Handle() = %q", got)
	}
}

func TestHandle_ClassificationFailuresDefaultToChat(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"transport error", "", errors.New("connection refused")},
		{"no json in response", "The user seems to want a summary.", nil},
		{"unknown intent", `{"intent": "summarize", "confidence": "high"}`, nil},
		{"empty intent", `{"confidence": "high"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{
				responses: []string{tt.response, "chat answer"},
				errs:      []error{tt.err, nil},
			}
			r, _ := newTestRouter(client, staticFeed{})

			if got := r.Handle(context.Background(), "do the thing"); got != "chat answer" {
				t.Errorf("Handle() = %q, want the chat path's answer", got)
			}
		})
	}
}

func TestHandle_ClassificationIntentNormalized(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": " QUERY ", "confidence": "high"}`,
		"normalized fine",
	}}
	r, _ := newTestRouter(client, staticFeed{items: freshNotifications(1)})

	if got := r.Handle(context.Background(), "what's new?"); got != "normalized fine" {
		t.Errorf("Handle() = %q, want query path after normalization", got)
	}
	if !strings.Contains(client.calls[1], "Current notifications") {
		t.Error("second call should be the query prompt")
	}
}

func TestHandle_AtMostTwoCompletionCalls(t *testing.T) {
	for _, intent := range []string{"query", "rerank", "chat"} {
		client := &scriptedClient{responses: []string{
			classifyAs(intent),
			`{"add_keywords": ["x"], "confirmation": "ok"}`,
		}}
		r, _ := newTestRouter(client, staticFeed{items: freshNotifications(2)})

		r.Handle(context.Background(), "request")
		if len(client.calls) > 2 {
			t.Errorf("intent %s: %d completion calls, want at most 2", intent, len(client.calls))
		}
	}
}

func TestHandle_TotalFailureStillReturnsText(t *testing.T) {
	client := &scriptedClient{errs: []error{
		errors.New("down"), errors.New("down"),
	}}
	r, _ := newTestRouter(client, staticFeed{})

	if got := r.Handle(context.Background(), "hello"); got != fallbackChat {
		t.Errorf("Handle() = %q, want chat fallback when everything fails", got)
	}
}

func TestBuildRerankPrompt_CarriesSchemaAndRules(t *testing.T) {
	ctx := types.UserContext{Rules: types.PriorityRules{Keywords: []string{"urgent"}}}
	prompt := buildRerankPrompt(ctx, "mute spotify")

	for _, want := range []string{"add_keywords", "remove_contacts", "confirmation", `"urgent"`, "mute spotify"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("rerank prompt missing %q", want)
		}
	}
}

func TestHumanAge(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{49 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		if got := humanAge(tt.age); got != tt.want {
			t.Errorf("humanAge(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}
