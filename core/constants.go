package core

import "time"

const (
	// PageSize is the number of items requested per findings/alerts page.
	// The backend rejects larger pages.
	PageSize = 10000

	// MaxRulesPerQuery bounds the number of ids sent in one rules search.
	MaxRulesPerQuery = 10000

	// EmptyDataPlaceholder is displayed when a value cannot be resolved.
	EmptyDataPlaceholder = "-"

	// ThreatIntelTag marks a finding query produced by a threat-intel feed match.
	ThreatIntelTag = "threat_intel"
)

// Timeouts used by the gateways and notifier
const (
	// HTTPClientTimeout is the default timeout for outbound HTTP calls
	HTTPClientTimeout = 30 * time.Second

	// RefreshTimeout bounds a whole refresh cycle when the caller supplies no deadline
	RefreshTimeout = 5 * time.Minute

	// MaxErrorMessageLength caps error text surfaced to notifications and API clients
	MaxErrorMessageLength = 512
)

// RefreshState represents the state of the overview refresh cycle
type RefreshState string

const (
	// RefreshStateComplete means no refresh is running
	RefreshStateComplete RefreshState = "complete"
	// RefreshStateInProgress means a refresh is currently running
	RefreshStateInProgress RefreshState = "in_progress"
)

// String returns the string representation
func (s RefreshState) String() string {
	return string(s)
}
