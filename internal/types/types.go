// Package types defines the core data model shared across the Verdure
// pipeline: notifications flowing in from the platform feed, the user's
// priority rules, proposed rule deltas, and intent classifications.
//
// Everything here is plain data. Notifications and score results live only
// for the duration of one request; PriorityRules is the single persisted
// structure and is mutated exclusively through validated deltas.
package types

import "time"

// Platform-assigned notification priority levels.
// Mirrors the platform's convention: MAX=2, HIGH=1, DEFAULT=0, LOW=-1, MIN=-2.
const (
	PriorityMax     = 2
	PriorityHigh    = 1
	PriorityDefault = 0
	PriorityLow     = -1
	PriorityMin     = -2
)

// Notification is a single rankable unit delivered by the platform feed.
// The feed does not guarantee ordering or id uniqueness; the core never
// persists these.
type Notification struct {
	ID          int64  `json:"id"`
	PackageName string `json:"package_name"`
	AppName     string `json:"app_name"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"` // unix milliseconds
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
	HasActions  bool   `json:"has_actions"`
	HasImage    bool   `json:"has_image"`
	IsOngoing   bool   `json:"is_ongoing"`
}

// Age returns how long ago the notification was posted, relative to now.
func (n Notification) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(n.Timestamp))
}

// PriorityRules is the user-tunable configuration driving scoring.
//
// Invariants (enforced by the rules.Store and the validator):
//   - every list is duplicate-free
//   - every Domains entry begins with '.'
//   - UpdatedAt advances on every mutation
type PriorityRules struct {
	Keywords         []string `json:"keywords"`
	HighPriorityApps []string `json:"high_priority_apps"`
	FinancialApps    []string `json:"financial_apps"`
	NeutralApps      []string `json:"neutral_apps"`
	Domains          []string `json:"domains"`
	Senders          []string `json:"senders"`
	Contacts         []string `json:"contacts"`

	// AppOrder is an optional explicit priority ordering. When an app matches
	// an entry here, positional decay overrides the tier defaults entirely.
	AppOrder []string `json:"app_order,omitempty"`

	UpdatedAt int64 `json:"updated_at"` // unix milliseconds
}

// Clone returns a deep copy so callers can hold a snapshot without racing
// writers.
func (r PriorityRules) Clone() PriorityRules {
	c := r
	c.Keywords = append([]string(nil), r.Keywords...)
	c.HighPriorityApps = append([]string(nil), r.HighPriorityApps...)
	c.FinancialApps = append([]string(nil), r.FinancialApps...)
	c.NeutralApps = append([]string(nil), r.NeutralApps...)
	c.Domains = append([]string(nil), r.Domains...)
	c.Senders = append([]string(nil), r.Senders...)
	c.Contacts = append([]string(nil), r.Contacts...)
	c.AppOrder = append([]string(nil), r.AppOrder...)
	return c
}

// UserContext wraps the free-text profile and the current rules. It is
// returned by value from the store as an immutable snapshot.
type UserContext struct {
	Profile string        `json:"profile"`
	Rules   PriorityRules `json:"rules"`
}

// ScoredNotification pairs a notification with its computed score.
type ScoredNotification struct {
	Notification Notification
	Score        int
}

// Intent is the classified purpose of a free-text user request.
type Intent string

const (
	IntentQuery  Intent = "query"  // question about current notifications
	IntentRerank Intent = "rerank" // request to change priority rules
	IntentChat   Intent = "chat"   // everything else; also the fail-safe
)

// Valid reports whether the intent is one of the three known values.
func (i Intent) Valid() bool {
	switch i {
	case IntentQuery, IntentRerank, IntentChat:
		return true
	}
	return false
}

// IntentClassification is the result of the first router pass. Never persisted.
type IntentClassification struct {
	Intent     Intent `json:"intent"`
	Confidence string `json:"confidence"` // high, medium, low
}

// RuleDelta is a proposed, not-yet-validated mutation against PriorityRules.
// The JSON tags double as the extraction schema shown to the completion
// service, so they must stay stable.
type RuleDelta struct {
	AddKeywords            []string `json:"add_keywords,omitempty"`
	RemoveKeywords         []string `json:"remove_keywords,omitempty"`
	AddHighPriorityApps    []string `json:"add_high_priority_apps,omitempty"`
	RemoveHighPriorityApps []string `json:"remove_high_priority_apps,omitempty"`
	AddFinancialApps       []string `json:"add_financial_apps,omitempty"`
	RemoveFinancialApps    []string `json:"remove_financial_apps,omitempty"`
	AddNeutralApps         []string `json:"add_neutral_apps,omitempty"`
	RemoveNeutralApps      []string `json:"remove_neutral_apps,omitempty"`
	AddDomains             []string `json:"add_domains,omitempty"`
	RemoveDomains          []string `json:"remove_domains,omitempty"`
	AddSenders             []string `json:"add_senders,omitempty"`
	RemoveSenders          []string `json:"remove_senders,omitempty"`
	AddContacts            []string `json:"add_contacts,omitempty"`
	RemoveContacts         []string `json:"remove_contacts,omitempty"`
}

// IsEmpty reports whether the delta carries no entries at all.
func (d RuleDelta) IsEmpty() bool {
	lists := [][]string{
		d.AddKeywords, d.RemoveKeywords,
		d.AddHighPriorityApps, d.RemoveHighPriorityApps,
		d.AddFinancialApps, d.RemoveFinancialApps,
		d.AddNeutralApps, d.RemoveNeutralApps,
		d.AddDomains, d.RemoveDomains,
		d.AddSenders, d.RemoveSenders,
		d.AddContacts, d.RemoveContacts,
	}
	for _, l := range lists {
		if len(l) > 0 {
			return false
		}
	}
	return true
}
