package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/authtrail/internal/agent"
	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/models"
	pkglogger "github.com/BradenHooton/authtrail/pkg/logger"
)

// UserLookup resolves users for incoming authentication events
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindByColumn(ctx context.Context, column, value string) (*models.User, error)
}

// DescriptorParser turns raw request metadata into an agent descriptor
type DescriptorParser interface {
	Describe(meta agent.RequestMeta) models.AgentDescriptor
}

// EventOutcome is what an authentication event produced. Login is nil when the
// login was throttled.
type EventOutcome struct {
	Device   *models.Device `json:"device"`
	Login    *models.Login  `json:"login,omitempty"`
	Recorded bool           `json:"recorded"`
}

// AuthEventService turns authentication events observed by the host system into
// device and login history.
type AuthEventService struct {
	devices     *DeviceService
	recorder    *LoginRecorder
	users       UserLookup
	parser      DescriptorParser
	sink        events.Sink
	loginColumn string
	logger      *slog.Logger
}

// NewAuthEventService creates a new AuthEventService. loginColumn selects the user
// column lockout payloads are resolved against.
func NewAuthEventService(devices *DeviceService, recorder *LoginRecorder, users UserLookup, parser DescriptorParser, sink events.Sink, loginColumn string, logger *slog.Logger) *AuthEventService {
	if sink == nil {
		sink = events.Discard
	}
	if loginColumn == "" {
		loginColumn = "email"
	}
	return &AuthEventService{
		devices:     devices,
		recorder:    recorder,
		users:       users,
		parser:      parser,
		sink:        sink,
		loginColumn: loginColumn,
		logger:      logger,
	}
}

// ResolveUser loads the user an event refers to
func (s *AuthEventService) ResolveUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// OnLogin records a successful authentication unless the device is throttled
func (s *AuthEventService) OnLogin(ctx context.Context, user *models.User, meta agent.RequestMeta) (*EventOutcome, error) {
	desc := s.parser.Describe(meta)

	device, err := s.devices.FindOrCreateDevice(ctx, user, desc)
	if err != nil {
		return nil, err
	}

	record, err := s.recorder.ShouldRecordLogin(ctx, device)
	if err != nil {
		return nil, err
	}
	if !record {
		s.logger.Debug("login throttled",
			slog.String("user_id", user.ID),
			slog.String("device_id", device.ID),
		)
		return &EventOutcome{Device: device}, nil
	}

	login, err := s.recorder.RecordLogin(ctx, user, device, models.LoginTypeLogin, desc.IPAddress)
	if err != nil {
		return nil, err
	}

	return &EventOutcome{Device: device, Login: login, Recorded: true}, nil
}

// OnFailed records a failed attempt. Failures are never throttled.
func (s *AuthEventService) OnFailed(ctx context.Context, user *models.User, meta agent.RequestMeta) (*EventOutcome, error) {
	outcome, err := s.record(ctx, user, meta, models.LoginTypeFailed)
	if err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, events.FailedAuth{Login: outcome.Login, Device: outcome.Device})
	return outcome, nil
}

// OnLockout records a lockout for the user identified by payload[loginColumn].
// Other payload keys are ignored, whatever their type. It returns a nil outcome
// and nil error when no user resolves.
func (s *AuthEventService) OnLockout(ctx context.Context, payload map[string]any, meta agent.RequestMeta) (*EventOutcome, error) {
	value, ok := payload[s.loginColumn].(string)
	if !ok || value == "" {
		s.logger.Info("lockout payload has no lookup value", slog.String("column", s.loginColumn))
		return nil, nil
	}

	user, err := s.users.FindByColumn(ctx, s.loginColumn, value)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Info("lockout for unknown user",
			slog.String("column", s.loginColumn),
			slog.String("value", maskLookupValue(s.loginColumn, value)),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lockout user: %w", err)
	}

	outcome, err := s.record(ctx, user, meta, models.LoginTypeLockout)
	if err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, events.LockoutAuth{Login: outcome.Login, Device: outcome.Device})
	return outcome, nil
}

func (s *AuthEventService) record(ctx context.Context, user *models.User, meta agent.RequestMeta, loginType models.LoginType) (*EventOutcome, error) {
	desc := s.parser.Describe(meta)

	device, err := s.devices.FindOrCreateDevice(ctx, user, desc)
	if err != nil {
		return nil, err
	}

	login, err := s.recorder.RecordLogin(ctx, user, device, loginType, desc.IPAddress)
	if err != nil {
		return nil, err
	}

	return &EventOutcome{Device: device, Login: login, Recorded: true}, nil
}

func maskLookupValue(column, value string) string {
	if column == "email" {
		return pkglogger.SanitizedEmail(value)
	}
	return value
}
