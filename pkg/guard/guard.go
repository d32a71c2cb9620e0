// Package guard implements a lexical prompt-injection filter. It is a
// heuristic pre-filter, not a security boundary: false negatives are
// expected, patterns are kept narrow to minimize false positives.
package guard

import (
	"regexp"
)

// Known injection patterns, checked in order. First match is decisive.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(previous|all|instructions)`),
	regexp.MustCompile(`(?i)system\s+prompt`),
	regexp.MustCompile(`(?i)forget\s+everything`),
	regexp.MustCompile(`(?i)base64\s*decode`),
	regexp.MustCompile(`(?i)reveal\s+(secret|key|prompt)`),
}

// Check reports whether the query matches a known prompt-injection pattern.
// Callers must reject a matching request before any retrieval or generation
// work is done.
func Check(query string) bool {
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(query) {
			return true
		}
	}
	return false
}
