package services

import (
	"time"

	"github.com/BradenHooton/authtrail/internal/models"
)

// ThrottlePolicy suppresses recording a successful login when the device already
// logged in within the last Minutes. Zero disables throttling.
type ThrottlePolicy struct {
	Minutes int
	Now     func() time.Time
}

func NewThrottlePolicy(minutes int) ThrottlePolicy {
	return ThrottlePolicy{Minutes: minutes, Now: time.Now}
}

// ShouldRecordLogin reports whether a new login may be recorded given the device's
// most recent login (nil when it has none).
func (p ThrottlePolicy) ShouldRecordLogin(lastLogin *models.Login) bool {
	if p.Minutes <= 0 || lastLogin == nil {
		return true
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	cutoff := now().Add(-time.Duration(p.Minutes) * time.Minute)
	return !lastLogin.CreatedAt.After(cutoff)
}
