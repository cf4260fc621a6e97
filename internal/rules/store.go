// Package rules owns the persisted user configuration: the priority rules
// and the free-text profile. The store is the only shared mutable resource
// in the pipeline; writers serialize on a single critical section and
// readers take consistent snapshots.
package rules

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"verdure/internal/logging"
	"verdure/internal/types"
)

// Store guards the current UserContext and applies validated deltas
// atomically. A mutation replaces the in-memory state only after the
// persister has accepted the new blob, so cancellation or persistence
// failure never leaves the rules half-applied.
type Store struct {
	mu        sync.RWMutex
	ctx       types.UserContext
	loaded    bool
	persister Persister
	now       func() time.Time
}

// NewStore creates a store backed by the given persister.
func NewStore(p Persister) *Store {
	return &Store{persister: p, now: time.Now}
}

// Load returns the current snapshot, creating defaults on first access.
// The returned context is a deep copy; callers never share slices with the
// store.
func (s *Store) Load() types.UserContext {
	s.mu.RLock()
	if s.loaded {
		ctx := s.snapshotLocked()
		s.mu.RUnlock()
		return ctx
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.loadLocked()
	}
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() types.UserContext {
	return types.UserContext{
		Profile: s.ctx.Profile,
		Rules:   s.ctx.Rules.Clone(),
	}
}

// loadLocked hydrates from the persister or falls back to defaults.
// Corrupt blobs degrade to defaults rather than failing the request.
func (s *Store) loadLocked() {
	s.loaded = true

	blob, ok, err := s.persister.LoadBlob()
	if err != nil {
		logging.Get(logging.CategoryRules).Error("Failed to load persisted rules: %v", err)
	}
	if err == nil && ok {
		var ctx types.UserContext
		if jsonErr := json.Unmarshal(blob, &ctx); jsonErr == nil {
			s.ctx = ctx
			logging.Rules("Loaded persisted rules (updated %d)", ctx.Rules.UpdatedAt)
			return
		}
		logging.Get(logging.CategoryRules).Error("Persisted rule blob is corrupt, using defaults")
	}

	s.ctx = types.UserContext{
		Rules: types.PriorityRules{UpdatedAt: s.now().UnixMilli()},
	}
	logging.Rules("Initialized default rules")
}

// ApplyDelta applies a validated delta inside the single write critical
// section: per dimension (current ∪ add) \ remove, de-duplicated, then a
// fresh UpdatedAt stamp. The new blob is handed to the persister before the
// in-memory state flips.
func (s *Store) ApplyDelta(delta types.RuleDelta) (types.PriorityRules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loadLocked()
	}

	next := s.ctx
	next.Rules = applyDelta(s.ctx.Rules, delta)
	next.Rules.UpdatedAt = s.stampLocked()

	blob, err := json.Marshal(next)
	if err != nil {
		return types.PriorityRules{}, fmt.Errorf("failed to serialize rules: %w", err)
	}
	if err := s.persister.SaveBlob(blob); err != nil {
		return types.PriorityRules{}, fmt.Errorf("failed to persist rules: %w", err)
	}

	s.ctx = next
	logging.Rules("Applied rule delta (updated %d)", next.Rules.UpdatedAt)
	return next.Rules.Clone(), nil
}

// SetProfile replaces the free-text profile and persists the result.
func (s *Store) SetProfile(profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loadLocked()
	}

	next := s.ctx
	next.Profile = profile
	next.Rules.UpdatedAt = s.stampLocked()

	blob, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to serialize rules: %w", err)
	}
	if err := s.persister.SaveBlob(blob); err != nil {
		return fmt.Errorf("failed to persist rules: %w", err)
	}

	s.ctx = next
	return nil
}

// Reload re-reads the persisted blob, picking up external replacement.
// A blob whose UpdatedAt is not newer than the in-memory state is ignored,
// which makes reloads after our own writes a no-op.
func (s *Store) Reload() error {
	blob, ok, err := s.persister.LoadBlob()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var ctx types.UserContext
	if err := json.Unmarshal(blob, &ctx); err != nil {
		return fmt.Errorf("failed to parse persisted rules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded && ctx.Rules.UpdatedAt <= s.ctx.Rules.UpdatedAt {
		return nil
	}
	s.ctx = ctx
	s.loaded = true
	logging.Rules("Reloaded rules from persistence (updated %d)", ctx.Rules.UpdatedAt)
	return nil
}

// stampLocked returns a strictly advancing unix-millisecond marker.
func (s *Store) stampLocked() int64 {
	stamp := s.now().UnixMilli()
	if stamp <= s.ctx.Rules.UpdatedAt {
		stamp = s.ctx.Rules.UpdatedAt + 1
	}
	return stamp
}

// applyDelta computes the next rule set without mutating the current one.
func applyDelta(current types.PriorityRules, d types.RuleDelta) types.PriorityRules {
	next := current.Clone()
	next.Keywords = applyDimension(current.Keywords, d.AddKeywords, d.RemoveKeywords)
	next.HighPriorityApps = applyDimension(current.HighPriorityApps, d.AddHighPriorityApps, d.RemoveHighPriorityApps)
	next.FinancialApps = applyDimension(current.FinancialApps, d.AddFinancialApps, d.RemoveFinancialApps)
	next.NeutralApps = applyDimension(current.NeutralApps, d.AddNeutralApps, d.RemoveNeutralApps)
	next.Domains = applyDimension(current.Domains, d.AddDomains, d.RemoveDomains)
	next.Senders = applyDimension(current.Senders, d.AddSenders, d.RemoveSenders)
	next.Contacts = applyDimension(current.Contacts, d.AddContacts, d.RemoveContacts)
	return next
}

// applyDimension computes (current ∪ add) \ remove, preserving first
// occurrence order and collapsing case-insensitive duplicates.
func applyDimension(current, add, remove []string) []string {
	removed := make(map[string]bool, len(remove))
	for _, e := range remove {
		removed[strings.ToLower(e)] = true
	}

	seen := make(map[string]bool, len(current)+len(add))
	var out []string
	for _, e := range append(append([]string{}, current...), add...) {
		key := strings.ToLower(strings.TrimSpace(e))
		if key == "" || seen[key] || removed[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(e))
	}
	return out
}
