package services

import (
	"context"
	"errors"
	"testing"

	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_Emit(t *testing.T) {
	device := &models.Device{ID: "device-1", UserID: "user-1", Platform: "Windows", PlatformVersion: "10", Browser: "Chrome", BrowserVersion: "120.0"}
	login := func(t models.LoginType) *models.Login {
		return &models.Login{
			ID: "login-1", UserID: "user-1", DeviceID: "device-1", IPAddress: "203.0.113.7", Type: t,
			IPInsights: models.IPInsights{CountryCode: "NL"},
		}
	}

	tests := []struct {
		name          string
		event         events.Event
		wantEventType string
		wantSuccess   bool
		wantResource  string
	}{
		{"login", events.LoginCreated{Login: login(models.LoginTypeLogin)}, models.AuditEventTypeLogin, true, models.AuditResourceTypeLogin},
		{"failed", events.FailedAuth{Login: login(models.LoginTypeFailed), Device: device}, models.AuditEventTypeAuthFailed, false, models.AuditResourceTypeLogin},
		{"lockout", events.LockoutAuth{Login: login(models.LoginTypeLockout), Device: device}, models.AuditEventTypeAuthLockout, false, models.AuditResourceTypeLogin},
		{"device", events.DeviceCreated{Device: device, Pin: "123456"}, models.AuditEventTypeDeviceCreated, true, models.AuditResourceTypeDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved []*models.AuditLog
			repo := &MockAuditLogRepository{
				CreateFunc: func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
					saved = append(saved, log)
					return log, nil
				},
			}
			svc := NewAuditService(repo, testLogger())

			svc.Emit(context.Background(), tt.event)

			require.Len(t, saved, 1)
			entry := saved[0]
			assert.Equal(t, tt.wantEventType, entry.EventType)
			assert.Equal(t, tt.wantSuccess, entry.Success)
			require.NotNil(t, entry.ResourceType)
			assert.Equal(t, tt.wantResource, *entry.ResourceType)
			require.NotNil(t, entry.ActorID)
			assert.Equal(t, "user-1", *entry.ActorID)
			assert.NotContains(t, entry.Metadata, "pin")
		})
	}
}

func TestAuditService_FailedLoginMetadata(t *testing.T) {
	var saved *models.AuditLog
	repo := &MockAuditLogRepository{
		CreateFunc: func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
			saved = log
			return log, nil
		},
	}
	svc := NewAuditService(repo, testLogger())
	device := &models.Device{ID: "device-1", UserID: "user-1", Platform: "Linux", PlatformVersion: "0", Browser: "Firefox", BrowserVersion: "121.0"}

	svc.Emit(context.Background(), events.FailedAuth{
		Login:  &models.Login{ID: "login-1", UserID: "user-1", DeviceID: "device-1", Type: models.LoginTypeFailed},
		Device: device,
	})

	require.NotNil(t, saved)
	assert.Equal(t, "Firefox 121.0 on Linux", saved.Metadata["device"])
	assert.Equal(t, "failed", saved.Metadata["type"])
	assert.Nil(t, saved.IPAddress)
	require.NotNil(t, saved.FailureReason)
}

func TestAuditService_IgnoresNonLoginLoginCreated(t *testing.T) {
	calls := 0
	repo := &MockAuditLogRepository{
		CreateFunc: func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
			calls++
			return log, nil
		},
	}
	svc := NewAuditService(repo, testLogger())

	svc.Emit(context.Background(), events.LoginCreated{Login: &models.Login{UserID: "user-1", Type: models.LoginTypeFailed}})

	assert.Equal(t, 0, calls)
}

func TestAuditService_PersistFailureIsSwallowed(t *testing.T) {
	repo := &MockAuditLogRepository{
		CreateFunc: func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewAuditService(repo, testLogger())

	assert.NotPanics(t, func() {
		svc.LogDeviceTrust(context.Background(), &models.Device{ID: "device-1", UserID: "user-1"}, models.AuditActionUpdate, true, nil)
	})
}

func TestAuditService_GetUserAuditTrail_ClampsPage(t *testing.T) {
	var gotLimit, gotOffset int
	repo := &MockAuditLogRepository{
		GetByActorIDFunc: func(ctx context.Context, actorID string, limit, offset int) ([]*models.AuditLog, error) {
			assert.Equal(t, "user-1", actorID)
			gotLimit, gotOffset = limit, offset
			return []*models.AuditLog{{ID: "audit-1", EventType: models.AuditEventTypeLogin}}, nil
		},
	}
	svc := NewAuditService(repo, testLogger())

	logs, err := svc.GetUserAuditTrail(context.Background(), "user-1", 0, -5)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, defaultHistoryLimit, gotLimit)
	assert.Equal(t, 0, gotOffset)
}

func TestAuditService_GetUserAuditTrail_RepositoryError(t *testing.T) {
	repo := &MockAuditLogRepository{
		GetByActorIDFunc: func(ctx context.Context, actorID string, limit, offset int) ([]*models.AuditLog, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewAuditService(repo, testLogger())

	_, err := svc.GetUserAuditTrail(context.Background(), "user-1", 10, 0)
	assert.Error(t, err)
}
