// Package strings provides helpers for identifier lists.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  m1 ", "m2", "m1", "", "  "})
//	// Returns: []string{"m1", "m2"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// Difference returns the elements of requested not present in found,
// preserving the order of requested.
func Difference(requested, found []string) []string {
	have := Set(found)
	var missing []string
	for _, v := range requested {
		if _, ok := have[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}

// Set builds a membership set, ignoring empty strings.
func Set(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// Frequencies counts occurrences of each non-empty value.
func Frequencies(values []string) map[string]int {
	freq := make(map[string]int, len(values))
	for _, v := range values {
		if v != "" {
			freq[v]++
		}
	}
	return freq
}
