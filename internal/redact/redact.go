// Package redact masks credentials in strings that end up in logs, such as
// database connection strings and store errors.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

const mask = "xxxxx"

type Redactor struct {
	rules []rule
}

type rule struct {
	re    *regexp.Regexp
	label string
}

// New returns a Redactor with the built-in rules plus any extra patterns.
// Patterns that fail to compile are skipped.
func New(extra ...string) *Redactor {
	rules := []rule{
		{re: regexp.MustCompile(`(?is)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`), label: "[REDACTED_PRIVATE_KEY]"},
		{re: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`), label: "Bearer [REDACTED]"},
		{re: regexp.MustCompile(`(?i)\b(password|passwd|pwd|sslpassword)\s*=\s*('[^']*'|[^\s&]+)`), label: "$1=" + mask},
		{re: regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://[^:/@\s]+):[^@\s]*@`), label: "${1}:" + mask + "@"},
	}
	for _, pattern := range extra {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		rules = append(rules, rule{re: re, label: "[REDACTED]"})
	}
	return &Redactor{rules: rules}
}

func (r *Redactor) Apply(input string) string {
	if r == nil || input == "" {
		return input
	}
	out := input
	for _, rule := range r.rules {
		out = rule.re.ReplaceAllString(out, rule.label)
	}
	return out
}

var defaultRedactor = New()

// String applies the built-in rules.
func String(input string) string {
	return defaultRedactor.Apply(input)
}

// DSN masks the password of a postgres URL or key/value connection string.
// Anything that does not parse as a URL falls back to the built-in rules.
func DSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return String(dsn)
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), mask)
		}
	}
	query := parsed.Query()
	for key := range query {
		switch strings.ToLower(key) {
		case "password", "sslpassword":
			query.Set(key, mask)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
