// Package discovery lists dataset files and builds the column vocabulary from their headers.
package discovery

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^0-9a-zA-Z]+`)

// Sanitize lower-cases and trims a column name, collapses every run of
// non-alphanumeric characters to one underscore and strips leading and
// trailing underscores. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlphanumeric.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
