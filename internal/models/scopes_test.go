package models

import (
	"testing"
)

func TestIsValidScope(t *testing.T) {
	tests := []struct {
		name     string
		scope    string
		expected bool
	}{
		{name: "valid events.write", scope: ScopeEventsWrite, expected: true},
		{name: "valid history.read", scope: ScopeHistoryRead, expected: true},
		{name: "valid devices.write", scope: ScopeDevicesWrite, expected: true},
		{name: "valid users.write", scope: ScopeUsersWrite, expected: true},
		{name: "valid wildcard", scope: ScopeAll, expected: true},
		{name: "invalid scope", scope: "invalid.scope", expected: false},
		{name: "invalid format", scope: "read", expected: false},
		{name: "empty scope", scope: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidScope(tt.scope)
			if result != tt.expected {
				t.Errorf("IsValidScope(%q) = %v, want %v", tt.scope, result, tt.expected)
			}
		})
	}
}

func TestHasScope(t *testing.T) {
	tests := []struct {
		name     string
		granted  []string
		required string
		expected bool
	}{
		{name: "exact match", granted: []string{ScopeHistoryRead}, required: ScopeHistoryRead, expected: true},
		{name: "wildcard", granted: []string{ScopeAll}, required: ScopeDevicesWrite, expected: true},
		{name: "missing", granted: []string{ScopeHistoryRead}, required: ScopeEventsWrite, expected: false},
		{name: "none granted", granted: nil, required: ScopeEventsWrite, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasScope(tt.granted, tt.required); got != tt.expected {
				t.Errorf("HasScope(%v, %q) = %v, want %v", tt.granted, tt.required, got, tt.expected)
			}
		})
	}
}

func TestValidateScopes(t *testing.T) {
	if bad := ValidateScopes([]string{ScopeEventsWrite, ScopeHistoryRead}); bad != "" {
		t.Errorf("expected all scopes valid, got %q", bad)
	}
	if bad := ValidateScopes([]string{ScopeEventsWrite, "admin"}); bad != "admin" {
		t.Errorf("expected admin to be rejected, got %q", bad)
	}
}
