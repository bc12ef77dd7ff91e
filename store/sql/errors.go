package sqlstore

import "strings"

// isUniqueViolation matches the sqlite and postgres unique-constraint error
// shapes without importing driver error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique") || strings.Contains(text, "duplicate")
}
