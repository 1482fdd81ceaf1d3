package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestThrottlePolicy_ShouldRecordLogin(t *testing.T) {
	now := func() time.Time { return fixedNow }

	tests := []struct {
		name     string
		minutes  int
		lastAgo  *time.Duration
		expected bool
	}{
		{"disabled, recent login", 0, durationPtr(5 * time.Second), true},
		{"disabled, no login", 0, nil, true},
		{"no prior login", 10, nil, true},
		{"within window", 10, durationPtr(5 * time.Minute), false},
		{"outside window", 10, durationPtr(15 * time.Minute), true},
		{"exactly at cutoff", 10, durationPtr(10 * time.Minute), true},
		{"just inside cutoff", 10, durationPtr(10*time.Minute - time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := ThrottlePolicy{Minutes: tt.minutes, Now: now}

			var last *models.Login
			if tt.lastAgo != nil {
				last = &models.Login{CreatedAt: fixedNow.Add(-*tt.lastAgo)}
			}

			assert.Equal(t, tt.expected, policy.ShouldRecordLogin(last))
		})
	}
}

func TestThrottlePolicy_DefaultClock(t *testing.T) {
	policy := NewThrottlePolicy(10)
	assert.False(t, policy.ShouldRecordLogin(&models.Login{CreatedAt: time.Now()}))
	assert.True(t, policy.ShouldRecordLogin(&models.Login{CreatedAt: time.Now().Add(-time.Hour)}))
}

func TestLoginRecorder_ShouldRecordLogin(t *testing.T) {
	ctx := context.Background()
	device := &models.Device{ID: "device-1"}

	t.Run("disabled throttle skips the lookup", func(t *testing.T) {
		repo := &MockLoginRepository{
			LatestForDeviceFunc: func(ctx context.Context, deviceID string) (*models.Login, error) {
				t.Fatal("LatestForDevice should not be called")
				return nil, nil
			},
		}
		recorder := NewLoginRecorder(repo, nil, ThrottlePolicy{}, nil, testLogger())

		ok, err := recorder.ShouldRecordLogin(ctx, device)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("any login type counts as the last login", func(t *testing.T) {
		repo := &MockLoginRepository{
			LatestForDeviceFunc: func(ctx context.Context, deviceID string) (*models.Login, error) {
				return &models.Login{Type: models.LoginTypeFailed, CreatedAt: fixedNow.Add(-2 * time.Minute)}, nil
			},
		}
		recorder := NewLoginRecorder(repo, nil, ThrottlePolicy{Minutes: 10, Now: func() time.Time { return fixedNow }}, nil, testLogger())

		ok, err := recorder.ShouldRecordLogin(ctx, device)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no history records", func(t *testing.T) {
		recorder := NewLoginRecorder(&MockLoginRepository{}, nil, ThrottlePolicy{Minutes: 10}, nil, testLogger())

		ok, err := recorder.ShouldRecordLogin(ctx, device)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		repo := &MockLoginRepository{
			LatestForDeviceFunc: func(ctx context.Context, deviceID string) (*models.Login, error) {
				return nil, errors.New("connection refused")
			},
		}
		recorder := NewLoginRecorder(repo, nil, ThrottlePolicy{Minutes: 10}, nil, testLogger())

		_, err := recorder.ShouldRecordLogin(ctx, device)
		assert.Error(t, err)
	})
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
