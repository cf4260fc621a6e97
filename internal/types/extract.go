package types

import "encoding/json"

// Completion-service output is untrusted: JSON payloads arrive wrapped in
// prose, markdown fences, or not at all. These helpers locate top-level
// {...} spans and parse the first one that unmarshals cleanly, so callers
// can fall back to a fixed default instead of failing the request.

// findJSONCandidates scans the input for top-level JSON object candidates.
// It handles nested braces and string escaping to correctly identify
// boundaries.
//
// A byte-level state machine skips over strings and non-JSON content. It is
// safe to iterate bytes for the ASCII delimiters ({, }, ", \) because UTF-8
// guarantees ASCII bytes never appear inside a multi-byte sequence.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	start := -1
	var inString bool
	var escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		if b == '"' {
			inString = true
			continue
		}

		if b == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if b == '}' {
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}

// ExtractJSONObject returns the first top-level {...} span in response that
// is syntactically valid JSON, or "" when none parses. Truncated objects
// (opening brace without a close) yield "".
func ExtractJSONObject(response string) string {
	for _, candidate := range findJSONCandidates(response) {
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}

// UnmarshalLoose extracts the first valid JSON object from response and
// unmarshals it into v. Returns false when no parseable object exists or
// the object does not fit v.
func UnmarshalLoose(response string, v interface{}) bool {
	obj := ExtractJSONObject(response)
	if obj == "" {
		return false
	}
	return json.Unmarshal([]byte(obj), v) == nil
}
