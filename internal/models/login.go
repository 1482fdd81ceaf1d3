package models

import (
	"fmt"
	"time"
)

// LoginType classifies a recorded authentication outcome
type LoginType string

const (
	LoginTypeLogin   LoginType = "login"
	LoginTypeFailed  LoginType = "failed"
	LoginTypeLockout LoginType = "lockout"
)

// ParseLoginType validates a login type coming from an API caller
func ParseLoginType(s string) (LoginType, error) {
	switch t := LoginType(s); t {
	case LoginTypeLogin, LoginTypeFailed, LoginTypeLockout:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown login type %q", ErrBadRequest, s)
}

// Login is a single recorded authentication event, owned by exactly one Device
type Login struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DeviceID   string     `json:"device_id"`
	IPAddress  string     `json:"ip_address"`
	IPInsights IPInsights `json:"ip_insights"`
	Type       LoginType  `json:"type"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LoginSummary aggregates a user's login history by type
type LoginSummary struct {
	UserID   string    `json:"user_id"`
	Since    time.Time `json:"since"`
	Logins   int64     `json:"logins"`
	Failed   int64     `json:"failed"`
	Lockouts int64     `json:"lockouts"`
	Devices  int       `json:"devices"`
	Last     *Login    `json:"last_login,omitempty"`
}
