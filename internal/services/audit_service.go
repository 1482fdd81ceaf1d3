package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/models"
	pkglogger "github.com/BradenHooton/authtrail/pkg/logger"
)

// AuditLogRepository defines the interface for audit log persistence
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	GetByActorID(ctx context.Context, actorID string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditService handles audit logging with dual-write pattern (slog + database).
// It listens to domain events as an events.Sink.
type AuditService struct {
	repo   AuditLogRepository
	audit  *pkglogger.AuditLogger
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		audit:  pkglogger.NewAuditLogger(logger),
		logger: logger,
	}
}

// Emit audits logins, failed attempts, lockouts and new devices
func (s *AuditService) Emit(ctx context.Context, event events.Event) {
	switch e := event.(type) {
	case events.LoginCreated:
		if e.Login.Type == models.LoginTypeLogin {
			s.logLogin(ctx, models.AuditEventTypeLogin, e.Login, nil, true, nil)
		}
	case events.FailedAuth:
		reason := "authentication failed"
		s.logLogin(ctx, models.AuditEventTypeAuthFailed, e.Login, e.Device, false, &reason)
	case events.LockoutAuth:
		reason := "account locked out"
		s.logLogin(ctx, models.AuditEventTypeAuthLockout, e.Login, e.Device, false, &reason)
	case events.DeviceCreated:
		s.logDevice(ctx, models.AuditEventTypeDeviceCreated, e.Device, models.AuditActionCreate, true, nil)
	}
}

// LogDeviceTrust audits a trust change or pin verification attempt
func (s *AuditService) LogDeviceTrust(ctx context.Context, device *models.Device, action string, success bool, failureReason *string) {
	s.logDevice(ctx, models.AuditEventTypeDeviceTrust, device, action, success, failureReason)
}

func (s *AuditService) logLogin(ctx context.Context, eventType string, login *models.Login, device *models.Device, success bool, failureReason *string) {
	metadata := models.NewLoginAuditMetadata(login, device)

	s.audit.LogAuthEvent(ctx, pkglogger.AuditEvent{
		EventType:     eventType,
		UserID:        login.UserID,
		DeviceID:      login.DeviceID,
		LoginID:       login.ID,
		IPAddress:     login.IPAddress,
		Success:       success,
		FailureReason: derefString(failureReason),
		Metadata:      stringMetadata(metadata),
	})

	resourceType := models.AuditResourceTypeLogin
	s.persist(ctx, &models.AuditLog{
		EventType:     eventType,
		ActorID:       &login.UserID,
		ResourceType:  &resourceType,
		ResourceID:    &login.ID,
		Action:        models.AuditActionCreate,
		Success:       success,
		FailureReason: failureReason,
		IPAddress:     nonEmpty(login.IPAddress),
		Metadata:      metadata,
	})
}

func (s *AuditService) logDevice(ctx context.Context, eventType string, device *models.Device, action string, success bool, failureReason *string) {
	metadata := models.AuditMetadata{
		"device":         device.Label(),
		"device_trusted": device.IsTrusted,
	}

	s.audit.LogDeviceEvent(ctx, pkglogger.AuditEvent{
		EventType:     eventType,
		UserID:        device.UserID,
		DeviceID:      device.ID,
		Success:       success,
		FailureReason: derefString(failureReason),
		Metadata:      stringMetadata(metadata),
	})

	resourceType := models.AuditResourceTypeDevice
	s.persist(ctx, &models.AuditLog{
		EventType:     eventType,
		ActorID:       &device.UserID,
		ResourceType:  &resourceType,
		ResourceID:    &device.ID,
		Action:        action,
		Success:       success,
		FailureReason: failureReason,
		IPAddress:     nonEmpty(device.IPAddress),
		Metadata:      metadata,
	})
}

// GetUserAuditTrail returns the newest audit entries for a user
func (s *AuditService) GetUserAuditTrail(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error) {
	limit, offset = clampPage(limit, offset)
	logs, err := s.repo.GetByActorID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (s *AuditService) persist(ctx context.Context, log *models.AuditLog) {
	// Non-critical: audit persistence never fails the caller
	if _, err := s.repo.Create(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("event_type", log.EventType),
			slog.Any("error", err),
		)
	}
}

func stringMetadata(metadata models.AuditMetadata) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
