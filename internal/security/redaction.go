// Package security scrubs credential-looking fragments from captured window
// titles. Terminal and browser titles routinely carry tokens pasted into
// commands or URLs, and titles end up both in the local database and on the
// relay.
package security

import (
	"regexp"
	"strings"
)

var (
	secretKeyExpr = `(?:password|passwd|secret|api[_-]?key|[a-z0-9._-]*token[a-z0-9._-]*)`
	queryPattern  = regexp.MustCompile(`(?i)([?&]` + secretKeyExpr + `=)[^\s&]+`)
	kvPattern     = regexp.MustCompile(`(?i)(` + secretKeyExpr + `)\s*[:=]\s*(?:"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|[^\s"'&]+)`)
	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)
)

// RedactTitle replaces credential-looking fragments with [REDACTED] and
// leaves everything else untouched.
func RedactTitle(title string) string {
	if title == "" {
		return ""
	}
	out := queryPattern.ReplaceAllString(title, `${1}[REDACTED]`)
	out = kvPattern.ReplaceAllStringFunc(out, func(match string) string {
		idx := strings.IndexAny(match, ":=")
		if idx < 0 {
			return "[REDACTED]"
		}
		return match[:idx+1] + "[REDACTED]"
	})
	out = bearerPattern.ReplaceAllString(out, "Bearer [REDACTED]")
	return out
}
