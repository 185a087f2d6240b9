package backend

import "strings"

// EscapeFilterValue escapes reserved characters in a display-name filter
// value. Single quotes delimit string literals in the filter grammar and are
// doubled to escape them.
func EscapeFilterValue(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// NameFilter builds an exact-match display-name filter expression.
func NameFilter(displayName string) string {
	return "displayName eq '" + EscapeFilterValue(displayName) + "'"
}
