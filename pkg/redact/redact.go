package redact

import (
	"regexp"
	"sync/atomic"
)

// Candidates volunteer contact details mid-interview, so anything that
// leaves the transcript path for logs or timeline artifacts runs
// through Text first.

var enabled atomic.Bool

type rule struct {
	re          *regexp.Regexp
	replacement string
}

var rules = []rule{
	{regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`), "[REDACTED_PHONE]"},
}

// SetEnabled toggles PII redaction engine-wide.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled reports whether redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text scrubs email addresses and phone numbers when redaction is on.
// The input is returned untouched when redaction is disabled.
func Text(in string) string {
	if !enabled.Load() || in == "" {
		return in
	}
	out := in
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.replacement)
	}
	return out
}
