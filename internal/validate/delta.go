// Package validate repairs extracted rule deltas before they reach the rule
// store. The completion service is untrusted, so validation is field-by-field:
// a bad entry is dropped, the rest of the delta survives. This maximizes the
// intent extracted from a partially hallucinated response while keeping the
// rule set's invariants intact.
package validate

import (
	"strings"

	"verdure/internal/logging"
	"verdure/internal/types"
)

// DomainSeparator is the required first character of every domain entry.
const DomainSeparator = "."

// Delta returns a repaired copy of d:
//   - entries are whitespace-trimmed; blanks are dropped
//   - domain entries not starting with '.' are dropped
//   - duplicates within a list collapse (case-insensitive, first wins)
//   - an entry present in both the add and remove list of one dimension is
//     removed from both, making it a net no-op
func Delta(d types.RuleDelta) types.RuleDelta {
	out := types.RuleDelta{
		AddKeywords:            cleanList(d.AddKeywords),
		RemoveKeywords:         cleanList(d.RemoveKeywords),
		AddHighPriorityApps:    cleanList(d.AddHighPriorityApps),
		RemoveHighPriorityApps: cleanList(d.RemoveHighPriorityApps),
		AddFinancialApps:       cleanList(d.AddFinancialApps),
		RemoveFinancialApps:    cleanList(d.RemoveFinancialApps),
		AddNeutralApps:         cleanList(d.AddNeutralApps),
		RemoveNeutralApps:      cleanList(d.RemoveNeutralApps),
		AddDomains:             cleanDomains(d.AddDomains),
		RemoveDomains:          cleanDomains(d.RemoveDomains),
		AddSenders:             cleanList(d.AddSenders),
		RemoveSenders:          cleanList(d.RemoveSenders),
		AddContacts:            cleanList(d.AddContacts),
		RemoveContacts:         cleanList(d.RemoveContacts),
	}

	out.AddKeywords, out.RemoveKeywords = dropOverlap(out.AddKeywords, out.RemoveKeywords)
	out.AddHighPriorityApps, out.RemoveHighPriorityApps = dropOverlap(out.AddHighPriorityApps, out.RemoveHighPriorityApps)
	out.AddFinancialApps, out.RemoveFinancialApps = dropOverlap(out.AddFinancialApps, out.RemoveFinancialApps)
	out.AddNeutralApps, out.RemoveNeutralApps = dropOverlap(out.AddNeutralApps, out.RemoveNeutralApps)
	out.AddDomains, out.RemoveDomains = dropOverlap(out.AddDomains, out.RemoveDomains)
	out.AddSenders, out.RemoveSenders = dropOverlap(out.AddSenders, out.RemoveSenders)
	out.AddContacts, out.RemoveContacts = dropOverlap(out.AddContacts, out.RemoveContacts)

	return out
}

// cleanList trims, drops blanks, and collapses case-insensitive duplicates
// keeping the first occurrence.
func cleanList(entries []string) []string {
	if len(entries) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(entries))
	var out []string
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// cleanDomains applies cleanList and additionally enforces the separator
// prefix. Entries like "whatsapp" are hallucinated app names, not domains.
func cleanDomains(entries []string) []string {
	var out []string
	for _, e := range cleanList(entries) {
		if !strings.HasPrefix(e, DomainSeparator) {
			logging.Validate("dropping domain entry without separator: %q", e)
			continue
		}
		out = append(out, e)
	}
	return out
}

// dropOverlap removes entries present in both lists. Adding and removing the
// same entry in one delta carries no decipherable intent, so it becomes a
// net no-op rather than a guess.
func dropOverlap(add, remove []string) ([]string, []string) {
	if len(add) == 0 || len(remove) == 0 {
		return add, remove
	}
	inAdd := make(map[string]bool, len(add))
	for _, e := range add {
		inAdd[strings.ToLower(e)] = true
	}
	inRemove := make(map[string]bool, len(remove))
	for _, e := range remove {
		inRemove[strings.ToLower(e)] = true
	}

	var keepAdd, keepRemove []string
	for _, e := range add {
		if !inRemove[strings.ToLower(e)] {
			keepAdd = append(keepAdd, e)
		}
	}
	for _, e := range remove {
		if !inAdd[strings.ToLower(e)] {
			keepRemove = append(keepRemove, e)
		}
	}
	return keepAdd, keepRemove
}
