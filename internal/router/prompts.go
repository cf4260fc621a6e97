package router

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"verdure/internal/types"
)

// Fixed user-visible fallback strings. Every failure path yields one of
// these or the raw completion text; never silence, never a stack trace.
const (
	fallbackQuery  = "Sorry, I couldn't check your notifications just now. Please try again in a moment."
	fallbackRerank = "Sorry, I couldn't update your priority rules just now. Please try again in a moment."
	fallbackChat   = "Sorry, I'm having trouble responding right now. Please try again in a moment."

	clarifyRerank = "I couldn't work out which rules to change from that. Could you rephrase it? For example: \"prioritize Discord\" or \"stop flagging emails from .com domains\"."

	defaultConfirmation = "Done - your priority rules have been updated."
)

// classifySystemPrompt instructs the first pass. The contract is a single
// small JSON object; anything else falls back to chat.
const classifySystemPrompt = `You classify a user's request about their phone notifications into exactly one intent.

Intents:
- "query": the user asks about their current notifications (what's urgent, did anyone message me, summarize).
- "rerank": the user wants to change how notifications are prioritized (prioritize an app, add keywords, mute a sender).
- "chat": anything else (greetings, questions about you, general conversation).

Respond with ONLY a JSON object, no prose:
{"intent": "query" | "rerank" | "chat", "confidence": "high" | "medium" | "low"}`

// deltaSchema is shown verbatim to the completion service on the rerank
// path. The keys must match types.RuleDelta's JSON tags.
const deltaSchema = `{
  "add_keywords": ["..."], "remove_keywords": ["..."],
  "add_high_priority_apps": ["..."], "remove_high_priority_apps": ["..."],
  "add_financial_apps": ["..."], "remove_financial_apps": ["..."],
  "add_neutral_apps": ["..."], "remove_neutral_apps": ["..."],
  "add_domains": ["..."], "remove_domains": ["..."],
  "add_senders": ["..."], "remove_senders": ["..."],
  "add_contacts": ["..."], "remove_contacts": ["..."],
  "confirmation": "one short sentence confirming the change"
}`

// buildClassifyPrompt keeps pass 1 minimal: raw text only, instructions in
// the system prompt.
func buildClassifyPrompt(request string) string {
	return "User request:\n" + request
}

func buildQueryPrompt(ctx types.UserContext, ranked []types.ScoredNotification, request string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("You are a notification assistant. Answer the user's question using only the notifications below.\n\n")

	sb.WriteString("## User priorities\n")
	sb.WriteString(summarizeRules(ctx.Rules))
	sb.WriteString("\n\n## Current notifications (highest priority first)\n")
	if len(ranked) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, s := range ranked {
		n := s.Notification
		sb.WriteString(fmt.Sprintf("%d. [%s, %s, score %d] %s - %s\n",
			i+1, n.AppName, humanAge(n.Age(now)), s.Score, n.Title, truncate(n.Text, 120)))
	}

	sb.WriteString("\n## Question\n")
	sb.WriteString(request)
	sb.WriteString("\n\nAnswer concisely and conversationally. Do not invent notifications.")
	return sb.String()
}

func buildRerankPrompt(ctx types.UserContext, request string) string {
	rulesJSON, err := json.MarshalIndent(ctx.Rules, "", "  ")
	if err != nil {
		rulesJSON = []byte("{}")
	}

	var sb strings.Builder
	sb.WriteString("The user wants to change their notification priority rules.\n\n")
	sb.WriteString("## Current rules\n")
	sb.Write(rulesJSON)
	sb.WriteString("\n\n## User request\n")
	sb.WriteString(request)
	sb.WriteString("\n\n## Instructions\n")
	sb.WriteString("Extract the requested changes. Respond with ONLY a JSON object in this schema, ")
	sb.WriteString("omitting keys you don't need. Domain entries must start with '.'\n")
	sb.WriteString(deltaSchema)
	return sb.String()
}

func buildChatPrompt(ctx types.UserContext, request string) string {
	var sb strings.Builder
	sb.WriteString("You are a friendly notification assistant on the user's phone.\n\n")
	sb.WriteString("## User priorities\n")
	sb.WriteString(summarizeRules(ctx.Rules))
	if ctx.Profile != "" {
		sb.WriteString("\n\n## About the user\n")
		sb.WriteString(truncate(ctx.Profile, 500))
	}
	sb.WriteString("\n\n## User message\n")
	sb.WriteString(request)
	sb.WriteString("\n\nReply briefly and helpfully.")
	return sb.String()
}

// summarizeRules condenses the rule set for prompts where the full JSON
// would waste the input budget.
func summarizeRules(r types.PriorityRules) string {
	var parts []string
	if len(r.Keywords) > 0 {
		parts = append(parts, "keywords: "+strings.Join(r.Keywords, ", "))
	}
	if len(r.HighPriorityApps) > 0 {
		parts = append(parts, "high-priority apps: "+strings.Join(r.HighPriorityApps, ", "))
	}
	if len(r.FinancialApps) > 0 {
		parts = append(parts, "financial apps: "+strings.Join(r.FinancialApps, ", "))
	}
	if len(r.Domains) > 0 {
		parts = append(parts, "watched domains: "+strings.Join(r.Domains, ", "))
	}
	if len(r.Senders) > 0 {
		parts = append(parts, "important senders: "+strings.Join(r.Senders, ", "))
	}
	if len(r.Contacts) > 0 {
		parts = append(parts, "important contacts: "+strings.Join(r.Contacts, ", "))
	}
	if len(r.AppOrder) > 0 {
		parts = append(parts, "custom app order: "+strings.Join(r.AppOrder, " > "))
	}
	if len(parts) == 0 {
		return "(no custom priorities set)"
	}
	return strings.Join(parts, "\n")
}

func humanAge(age time.Duration) string {
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
