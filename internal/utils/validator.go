package utils

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword validates a password (minimum 8 characters)
func ValidatePassword(password string) bool {
	return len(password) >= 8
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeDomain reduces a raw domain or URL to a canonical lowercase
// hostname. Full URLs are reduced to their host, ports are stripped, and a
// leading "www." is dropped so that both forms of a site charge the same
// ledger entry. Returns "" if nothing usable remains.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))

	if strings.Contains(d, "://") {
		if u, err := url.Parse(d); err == nil && u.Hostname() != "" {
			d = u.Hostname()
		}
	}

	if host, _, err := net.SplitHostPort(d); err == nil {
		d = host
	}

	d = strings.TrimPrefix(d, "www.")
	d = strings.Trim(d, "/")

	return d
}
