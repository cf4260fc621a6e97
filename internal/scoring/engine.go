// Package scoring implements the multi-factor notification scoring engine.
//
// Scoring is a pure function of (notification, rules, clock): independent
// weighted contributions are summed and the total clamped to a fixed band.
// Missing or malformed fields contribute zero to their factor rather than
// failing the computation.
package scoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"verdure/internal/logging"
	"verdure/internal/types"
)

// Config holds the scoring clamps and cutoffs.
type Config struct {
	ScoreCapMax       int
	ScoreCapMin       int
	PriorityThreshold int
	CriticalThreshold int
}

// DefaultConfig returns the stock clamps: scores in [-5, 24], ranked output
// at >= 2, critical at >= 15.
func DefaultConfig() Config {
	return Config{
		ScoreCapMax:       24,
		ScoreCapMin:       -5,
		PriorityThreshold: 2,
		CriticalThreshold: 15,
	}
}

// Engine scores notifications against a rule set. Safe for concurrent use;
// it holds no mutable state.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine creates an engine with the given config.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// NewEngineWithClock creates an engine with a fixed clock, used by tests to
// pin the freshness factor.
func NewEngineWithClock(cfg Config, now func() time.Time) *Engine {
	return &Engine{cfg: cfg, now: now}
}

// Score computes the clamped score for one notification.
func (e *Engine) Score(n types.Notification, rules types.PriorityRules) int {
	return e.ScoreAt(n, rules, e.now())
}

// ScoreAt is the deterministic core: identical (notification, rules, now)
// always yields the identical score.
func (e *Engine) ScoreAt(n types.Notification, rules types.PriorityRules, now time.Time) int {
	score := 0

	score += scoreByApp(n.AppName, rules)
	score += scoreByUserRules(n, rules)
	score += scoreByContent(n.Title, n.Text)
	score += scoreByTime(n.Timestamp, now)
	score += scoreByMetadata(n)
	score += scoreByScheduleProximity(n, now)

	if score > e.cfg.ScoreCapMax {
		score = e.cfg.ScoreCapMax
	}
	if score < e.cfg.ScoreCapMin {
		score = e.cfg.ScoreCapMin
	}
	return score
}

// IsCritical reports whether the notification scores at or above the
// critical threshold.
func (e *Engine) IsCritical(n types.Notification, rules types.PriorityRules) bool {
	return e.Score(n, rules) >= e.cfg.CriticalThreshold
}

// scoreAllParallelMin is the batch size at which ScoreAll fans out.
const scoreAllParallelMin = 64

// ScoreAll scores a batch, preserving input order. Re-delivered duplicate
// ids are re-scored identically (scoring is pure); deduplication stays the
// feed's concern.
func (e *Engine) ScoreAll(items []types.Notification, rules types.PriorityRules) []types.ScoredNotification {
	timer := logging.StartTimer(logging.CategoryScoring, fmt.Sprintf("ScoreAll(%d)", len(items)))
	defer timer.Stop()

	now := e.now()
	out := make([]types.ScoredNotification, len(items))

	if len(items) < scoreAllParallelMin {
		for i, n := range items {
			out[i] = types.ScoredNotification{Notification: n, Score: e.ScoreAt(n, rules, now)}
		}
		return out
	}

	// Large batches: fan out over fixed chunks with per-index writes so the
	// output order matches the input regardless of scheduling.
	var g errgroup.Group
	workers := runtime.NumCPU()
	chunk := (len(items) + workers - 1) / workers
	for start := 0; start < len(items); start += chunk {
		end := start + chunk
		if end > len(items) {
			end = len(items)
		}
		start, end := start, end
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = types.ScoredNotification{Notification: items[i], Score: e.ScoreAt(items[i], rules, now)}
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; scoring cannot fail
	return out
}

// FilterAndSort returns the entries scoring at or above threshold, sorted
// descending by score. Equal scores preserve input order.
func FilterAndSort(scored []types.ScoredNotification, threshold int) []types.ScoredNotification {
	kept := make([]types.ScoredNotification, 0, len(scored))
	for _, s := range scored {
		if s.Score >= threshold {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept
}

// Summarize renders a short per-app digest of the given notifications,
// truncating long bodies.
func Summarize(items []types.Notification) string {
	if len(items) == 0 {
		return "No critical notifications"
	}

	lines := make([]string, 0, len(items))
	for _, n := range items {
		text := n.Text
		if text == "" {
			text = n.Title
		}
		if len(text) > 100 {
			text = text[:100] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", n.AppName, text))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// SCORING FACTORS
// =============================================================================

// appOrderBase is the score of the first entry in a custom app ordering;
// later positions decay toward appOrderFloor.
const (
	appOrderBase  = 5
	appOrderFloor = 1
)

func scoreByApp(appName string, rules types.PriorityRules) int {
	lowerApp := strings.ToLower(appName)
	if lowerApp == "" {
		return 0
	}

	// Explicit ordering overrides the tier defaults entirely.
	for pos, app := range rules.AppOrder {
		if strings.Contains(lowerApp, strings.ToLower(app)) {
			s := appOrderBase - pos
			if s < appOrderFloor {
				s = appOrderFloor
			}
			return s
		}
	}

	switch {
	case matchesAnyApp(lowerApp, rules.HighPriorityApps):
		return 4
	case matchesAnyApp(lowerApp, rules.FinancialApps):
		return 3
	case matchesAnyApp(lowerApp, communicationTier1):
		return 3
	case matchesAnyApp(lowerApp, communicationTier2):
		return 2
	case matchesAnyApp(lowerApp, communicationTier3):
		return 1
	case matchesAnyApp(lowerApp, rules.NeutralApps):
		return 0
	case matchesAnyApp(lowerApp, lowPriorityApps):
		return -2
	}
	return 0
}

func matchesAnyApp(lowerApp string, apps []string) bool {
	for _, app := range apps {
		if app == "" {
			continue
		}
		if strings.Contains(lowerApp, strings.ToLower(app)) {
			return true
		}
	}
	return false
}

// keywordMatchCap prevents keyword stuffing from dominating the queue.
const keywordMatchCap = 6

func scoreByUserRules(n types.Notification, rules types.PriorityRules) int {
	score := 0
	content := strings.ToLower(n.Title + " " + n.Text)
	lowerTitle := strings.ToLower(strings.TrimSpace(n.Title))

	matches := 0
	for _, kw := range rules.Keywords {
		if kw != "" && strings.Contains(content, strings.ToLower(kw)) {
			matches++
		}
	}
	kwScore := matches * 2
	if kwScore > keywordMatchCap {
		kwScore = keywordMatchCap
	}
	score += kwScore

	for _, domain := range rules.Domains {
		if domain != "" && strings.Contains(content, strings.ToLower(domain)) {
			score += 2
		}
	}

	// Senders and contacts bonus once per rule entry, not per occurrence:
	// the title carries the sender on conversation-style notifications.
	for _, sender := range rules.Senders {
		if sender != "" && lowerTitle == strings.ToLower(sender) {
			score += 2
		}
	}
	for _, contact := range rules.Contacts {
		if contact != "" && lowerTitle == strings.ToLower(contact) {
			score += 2
		}
	}

	return score
}

func scoreByContent(title, text string) int {
	combined := strings.ToLower(title + " " + text)
	if strings.TrimSpace(combined) == "" {
		return 0
	}

	score := 0

	// Only the highest matching urgency tier counts.
	switch {
	case containsAny(combined, urgencyTier1):
		score += 5
	case containsAny(combined, urgencyTier2):
		score += 3
	case containsAny(combined, urgencyTier3):
		score += 2
	}

	if containsAny(combined, requestKeywords) {
		score += 3
	}
	if containsAny(combined, meetingKeywords) {
		score += 3
	}
	if containsAny(combined, temporalKeywords) {
		score += 2
	}
	if containsAny(combined, financialKeywords) {
		score += 2
	}

	if strings.Contains(combined, "?") {
		score += 2
	}
	if strings.Count(combined, "!") >= 2 {
		score += 1
	}
	if hasUppercaseRun(title, 4) {
		score += 1
	}
	if containsCurrency(title + " " + text) {
		score += 1
	}
	if containsAny(combined, personalKeywords) {
		score += 1
	}

	return score
}

func scoreByTime(timestamp int64, now time.Time) int {
	age := now.Sub(time.UnixMilli(timestamp))
	switch {
	case age < 5*time.Minute:
		return 2
	case age < 30*time.Minute:
		return 1
	case age > 24*time.Hour:
		return -1
	}
	return 0
}

func scoreByMetadata(n types.Notification) int {
	score := 0

	if n.Priority == types.PriorityHigh || n.Priority == types.PriorityMax {
		score += 3
	} else if n.Priority == types.PriorityLow || n.Priority == types.PriorityMin {
		score -= 1
	}

	if n.HasActions {
		score += 1
	}
	if n.HasImage {
		score += 1
	}
	if n.IsOngoing {
		score -= 3
	}

	return score
}

// scoreByScheduleProximity approximates calendar proximity when no explicit
// date is parsed: schedule-related notifications get a bonus that decays
// with the notification's own age.
func scoreByScheduleProximity(n types.Notification, now time.Time) int {
	combined := strings.ToLower(n.Title + " " + n.Text)
	if !containsAny(combined, meetingKeywords) && !containsAny(combined, temporalKeywords) {
		return 0
	}

	age := now.Sub(time.UnixMilli(n.Timestamp))
	switch {
	case age < 30*time.Minute:
		return 2
	case age < 2*time.Hour:
		return 1
	}
	return 0
}

func containsAny(lowerText string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowerText, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// hasUppercaseRun reports whether s contains at least n consecutive
// uppercase letters, a shouting signal like "URGENT".
func hasUppercaseRun(s string, n int) bool {
	run := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func containsCurrency(s string) bool {
	for _, sym := range []string{"$", "€", "£"} {
		if strings.Contains(s, sym) {
			return true
		}
	}
	return false
}
