package models

// Scope constants define all valid scopes in the system
const (
	// Authentication event ingestion
	ScopeEventsWrite = "events.write"

	// Device and login history
	ScopeHistoryRead  = "history.read"
	ScopeDevicesWrite = "devices.write"

	// User sync
	ScopeUsersWrite = "users.write"

	// Wildcard scope - grants all permissions
	ScopeAll = "*"
)

// AllValidScopes is the whitelist of all allowed scopes
var AllValidScopes = map[string]bool{
	ScopeEventsWrite:  true,
	ScopeHistoryRead:  true,
	ScopeDevicesWrite: true,
	ScopeUsersWrite:   true,
	ScopeAll:          true,
}

// IsValidScope checks if a scope exists in the whitelist
func IsValidScope(scope string) bool {
	return AllValidScopes[scope]
}

// HasScope reports whether granted contains required or the wildcard.
func HasScope(granted []string, required string) bool {
	for _, s := range granted {
		if s == ScopeAll || s == required {
			return true
		}
	}
	return false
}

// ValidateScopes returns the first unknown scope, or "" when all are valid.
func ValidateScopes(scopes []string) string {
	for _, s := range scopes {
		if !IsValidScope(s) {
			return s
		}
	}
	return ""
}
