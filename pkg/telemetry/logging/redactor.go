package logging

import (
	"regexp"
)

// Redactor redacts visitor IP addresses from log fields so that routine
// logs do not become a secondary store of PII.
type Redactor struct {
	ipv4 *regexp.Regexp
	ipv6 *regexp.Regexp
}

// NewRedactor creates a Redactor with the built-in IP patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		ipv4: regexp.MustCompile(`\b(\d{1,3})\.(?:\d{1,3}\.){2}\d{1,3}\b`),
		ipv6: regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){2,7}[0-9a-fA-F]{0,4}\b`),
	}
}

// RedactString redacts IP addresses from a string value, keeping the
// first IPv4 octet for coarse debugging.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	redacted := r.ipv4.ReplaceAllString(value, "$1.*.*.*")
	redacted = r.ipv6.ReplaceAllString(redacted, "::*")
	return redacted
}
