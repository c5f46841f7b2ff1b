// Package util holds small helpers shared by the API and the notifier.
package util

import (
	"regexp"
)

// MaxSanitizeLength bounds the input scanned by the sanitizers; longer
// input is truncated first
const MaxSanitizeLength = 64 * 1024

// Redaction markers
const (
	RedactedValue      = "[REDACTED]"
	RedactedConnection = "[CONNECTION]"
	RedactedAddress    = "[PRIVATE_IP]"
)

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

// Backend error reasons and transport errors can echo request URLs,
// headers and configuration values. These patterns cover what the
// OpenSearch client, the Redis client and the webhook channels produce.
var credentialPatterns = []replacement{
	// URLs with userinfo, e.g. https://admin:pw@search:9200 or redis://:pw@cache:6379
	{regexp.MustCompile(`(?i)\b(?:https?|rediss?)://[^\s"'/@]*@[^\s"']+`), RedactedConnection},

	{regexp.MustCompile(`(?i)\b(bearer|basic)\s+[a-z0-9_\-\.=+/]{8,}`), "$1 " + RedactedValue},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`), RedactedValue},

	// AWS access key ids and SigV4 signatures
	{regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`), RedactedValue},
	{regexp.MustCompile(`(?i)(signature)=[0-9a-f]{16,}`), "$1=" + RedactedValue},

	// JSON fields, e.g. "password":"x"
	{regexp.MustCompile(`(?i)"(password|passwd|secret|token|api_?key|secret_access_key|session_token|jwt_secret)"\s*:\s*"[^"]*"`), `"$1":"` + RedactedValue + `"`},

	// key=value and key: value pairs
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token|api_?key|credential|authorization|x-amz-security-token)\s*[:=]\s*["']?[^"'\s,;]+["']?`), "$1=" + RedactedValue},

	{regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`), RedactedValue},
}

var privateAddressPattern = regexp.MustCompile(
	`\b(?:10|127)(?:\.\d{1,3}){3}(?::\d{1,5})?\b` +
		`|\b172\.(?:1[6-9]|2[0-9]|3[01])(?:\.\d{1,3}){2}(?::\d{1,5})?\b` +
		`|\b192\.168(?:\.\d{1,3}){2}(?::\d{1,5})?\b`)

// SanitizeString removes credentials from s
func SanitizeString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > MaxSanitizeLength {
		s = s[:MaxSanitizeLength] + "... [truncated]"
	}
	for _, r := range credentialPatterns {
		s = r.pattern.ReplaceAllString(s, r.with)
	}
	return s
}

// SanitizeError sanitizes err's message. A nil error yields "".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// RedactPrivateAddresses replaces RFC 1918 and loopback addresses, with
// their ports, so internal topology is not exposed to API clients
func RedactPrivateAddresses(s string) string {
	return privateAddressPattern.ReplaceAllString(s, RedactedAddress)
}

// Truncate shortens s to at most max bytes, marking the cut with "..."
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
