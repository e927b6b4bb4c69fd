package util

import "strings"

// IsSafe reports whether a requested relative path may be resolved against a
// storage root. Any occurrence of ".." rejects the path, after normalizing
// backslashes to forward slashes. This over-rejects names like "a..b.jpg".
func IsSafe(requested string) bool {
	if requested == "" || strings.ContainsRune(requested, 0) {
		return false
	}

	normalized := strings.ReplaceAll(requested, `\`, "/")
	return !strings.Contains(normalized, "..")
}
