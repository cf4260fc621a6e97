// Package router orchestrates the two-pass request pipeline.
//
// Pass 1 classifies the free-form request into query, rerank, or chat with a
// single completion call; any failure defaults to chat. Pass 2 dispatches
// to the chosen path with at most one further call. The router never
// surfaces an internal failure to the caller: every path yields a
// best-effort natural-language string.
//
//	START → CLASSIFYING → {QUERY | RERANK | CHAT} → DONE
package router

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"verdure/internal/completion"
	"verdure/internal/logging"
	"verdure/internal/rules"
	"verdure/internal/scoring"
	"verdure/internal/types"
	"verdure/internal/validate"
)

// Feed supplies the current notifications for one request. Ordering and id
// uniqueness are the feed's concern, not the router's.
type Feed interface {
	ActiveNotifications(ctx context.Context) ([]types.Notification, error)
}

// Config tunes the router's batch sizes and cutoffs.
type Config struct {
	// QueryItemLimit caps how many ranked notifications the query path
	// embeds in its prompt.
	QueryItemLimit int

	// PriorityThreshold is the minimum score for a notification to appear
	// in ranked output at all.
	PriorityThreshold int
}

// DefaultConfig returns the stock router tuning.
func DefaultConfig() Config {
	return Config{
		QueryItemLimit:    8,
		PriorityThreshold: 2,
	}
}

// Router holds handles to the pipeline's collaborators. Safe for concurrent
// use: the only shared mutable state is the rule store, which does its own
// locking.
type Router struct {
	store  *rules.Store
	engine *scoring.Engine
	client completion.Client
	feed   Feed
	cfg    Config
	now    func() time.Time
}

// New creates a router. The client should already be timeout-bounded.
func New(store *rules.Store, engine *scoring.Engine, client completion.Client, feed Feed, cfg Config) *Router {
	if cfg.QueryItemLimit <= 0 {
		cfg.QueryItemLimit = 8
	}
	return &Router{
		store:  store,
		engine: engine,
		client: client,
		feed:   feed,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Handle runs one request through both passes and returns the user-visible
// response. It never returns an error; failures degrade to fixed fallback
// strings.
func (r *Router) Handle(ctx context.Context, request string) string {
	reqID := shortID()
	log := logging.WithRequestID(logging.CategoryRouting, reqID)
	log.Info("request: %.120q", request)

	// Pass 2 never begins before pass 1 resolves.
	classification := r.classify(ctx, request)
	log.Info("classified as %s (%s)", classification.Intent, classification.Confidence)

	var response string
	switch classification.Intent {
	case types.IntentQuery:
		response = r.handleQuery(ctx, request, log)
	case types.IntentRerank:
		response = r.handleRerank(ctx, request, log)
	default:
		response = r.handleChat(ctx, request, log)
	}

	log.Info("response: %.120q", response)
	return response
}

// classify is pass 1: one completion call, one small JSON object. Any
// failure - transport, timeout, missing JSON, unknown intent - lands on
// chat, the single fail-safe for the whole pipeline.
func (r *Router) classify(ctx context.Context, request string) types.IntentClassification {
	fallback := types.IntentClassification{Intent: types.IntentChat, Confidence: "low"}

	response, err := r.client.CompleteWithSystem(ctx, classifySystemPrompt, buildClassifyPrompt(request))
	if err != nil {
		logging.Routing("classification call failed, defaulting to chat: %v", err)
		return fallback
	}

	var c types.IntentClassification
	if !types.UnmarshalLoose(response, &c) {
		logging.Routing("classification response unparseable, defaulting to chat")
		return fallback
	}

	c.Intent = types.Intent(strings.ToLower(strings.TrimSpace(string(c.Intent))))
	if !c.Intent.Valid() {
		return fallback
	}
	if c.Confidence == "" {
		c.Confidence = "low"
	}
	return c
}

// handleQuery ranks the current notifications and asks the completion
// service to answer over the top slice.
func (r *Router) handleQuery(ctx context.Context, request string, log *logging.RequestLogger) string {
	snapshot := r.store.Load()

	items, err := r.feed.ActiveNotifications(ctx)
	if err != nil {
		// A broken feed still yields an answer over zero notifications.
		log.Warn("feed unavailable: %v", err)
		items = nil
	}

	scored := r.engine.ScoreAll(items, snapshot.Rules)
	ranked := scoring.FilterAndSort(scored, r.cfg.PriorityThreshold)
	if len(ranked) > r.cfg.QueryItemLimit {
		ranked = ranked[:r.cfg.QueryItemLimit]
	}
	log.Debug("query over %d/%d ranked notifications", len(ranked), len(items))

	answer, err := r.client.Complete(ctx, buildQueryPrompt(snapshot, ranked, request, r.now()))
	if err != nil {
		log.Warn("query synthesis failed: %v", err)
		return fallbackQuery
	}
	return answer
}

// rerankExtraction is the schema the rerank path expects back: a delta with
// a confirmation sentence alongside.
type rerankExtraction struct {
	types.RuleDelta
	Confirmation string `json:"confirmation"`
}

// handleRerank extracts a rule delta from the completion service, validates
// it field-by-field, and applies it atomically.
func (r *Router) handleRerank(ctx context.Context, request string, log *logging.RequestLogger) string {
	snapshot := r.store.Load()

	response, err := r.client.Complete(ctx, buildRerankPrompt(snapshot, request))
	if err != nil {
		log.Warn("rerank extraction call failed: %v", err)
		return fallbackRerank
	}

	var extracted rerankExtraction
	if !types.UnmarshalLoose(response, &extracted) {
		log.Warn("rerank response carried no parseable delta")
		return clarifyRerank
	}

	delta := validate.Delta(extracted.RuleDelta)
	if delta.IsEmpty() {
		log.Info("delta empty after validation")
		return clarifyRerank
	}

	if _, err := r.store.ApplyDelta(delta); err != nil {
		log.Error("delta application failed: %v", err)
		return fallbackRerank
	}

	if msg := strings.TrimSpace(extracted.Confirmation); msg != "" {
		return msg
	}
	return defaultConfirmation
}

// handleChat answers directly with a condensed rules summary for context.
func (r *Router) handleChat(ctx context.Context, request string, log *logging.RequestLogger) string {
	snapshot := r.store.Load()

	answer, err := r.client.Complete(ctx, buildChatPrompt(snapshot, request))
	if err != nil {
		log.Warn("chat call failed: %v", err)
		return fallbackChat
	}
	return answer
}

func shortID() string {
	id := uuid.NewString()
	return id[:8]
}
