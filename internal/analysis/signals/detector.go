// Package signals scans free-text answers for clarification language and
// domain keywords. Every function is pure.
package signals

import "strings"

// Keywords is an immutable set of lowercase substrings to look for.
type Keywords []string

var questionWords = Keywords{"what", "which", "how", "when", "where"}

var clarificationMarkers = Keywords{"clarif", "assumption", "constraints", "sla"}

// DetectsClarification reports whether text reads like a clarifying question:
// a question mark together with an interrogative, or an explicit mention of
// clarification, assumptions, constraints or SLAs.
func DetectsClarification(text string) bool {
	normalized := strings.ToLower(text)
	if normalized == "" {
		return false
	}
	if strings.Contains(normalized, "?") && containsAny(normalized, questionWords) {
		return true
	}
	return containsAny(normalized, clarificationMarkers)
}

// CountKeywordHits returns how many distinct keywords occur in text,
// case-insensitively. Repeats of one keyword count once.
func CountKeywordHits(text string, keywords Keywords) int {
	normalized := strings.ToLower(text)
	if normalized == "" {
		return 0
	}

	hits := 0
	seen := make(map[string]struct{}, len(keywords))
	for _, word := range keywords {
		word = strings.ToLower(word)
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		if strings.Contains(normalized, word) {
			hits++
		}
	}
	return hits
}

func containsAny(normalized string, words Keywords) bool {
	for _, word := range words {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}
