package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/geo"
	"github.com/BradenHooton/authtrail/internal/models"
)

// LoginRepository defines the interface for login data access
type LoginRepository interface {
	Create(ctx context.Context, login *models.Login) (*models.Login, error)
	LatestForDevice(ctx context.Context, deviceID string) (*models.Login, error)
	LatestForUser(ctx context.Context, userID string, types []models.LoginType) (*models.Login, error)
	ListByUser(ctx context.Context, userID string, types []models.LoginType, limit, offset int) ([]*models.Login, error)
	CountByType(ctx context.Context, userID string, since time.Time) (map[models.LoginType]int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// LoginRecorder persists logins enriched with IP geolocation
type LoginRecorder struct {
	repo     LoginRepository
	locator  geo.Locator
	throttle ThrottlePolicy
	sink     events.Sink
	logger   *slog.Logger
}

// NewLoginRecorder creates a new LoginRecorder. A nil locator disables enrichment.
func NewLoginRecorder(repo LoginRepository, locator geo.Locator, throttle ThrottlePolicy, sink events.Sink, logger *slog.Logger) *LoginRecorder {
	if locator == nil {
		locator = geo.NoopLocator{}
	}
	if sink == nil {
		sink = events.Discard
	}
	return &LoginRecorder{
		repo:     repo,
		locator:  locator,
		throttle: throttle,
		sink:     sink,
		logger:   logger,
	}
}

// ShouldRecordLogin applies the throttle policy to the device's most recent login of any type
func (r *LoginRecorder) ShouldRecordLogin(ctx context.Context, device *models.Device) (bool, error) {
	if r.throttle.Minutes <= 0 {
		return true, nil
	}

	last, err := r.repo.LatestForDevice(ctx, device.ID)
	if errors.Is(err, models.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load last login: %w", err)
	}

	return r.throttle.ShouldRecordLogin(last), nil
}

// RecordLogin persists a login and emits LoginCreated. Geolocation failures degrade to
// an empty IPInsights; persistence failures are returned and nothing is emitted.
func (r *LoginRecorder) RecordLogin(ctx context.Context, user *models.User, device *models.Device, loginType models.LoginType, ip string) (*models.Login, error) {
	login, err := r.repo.Create(ctx, &models.Login{
		UserID:     user.ID,
		DeviceID:   device.ID,
		IPAddress:  ip,
		IPInsights: r.lookup(ctx, ip),
		Type:       loginType,
	})
	if err != nil {
		r.logger.Error("failed to record login",
			slog.String("user_id", user.ID),
			slog.String("device_id", device.ID),
			slog.String("type", string(loginType)),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	r.sink.Emit(ctx, events.LoginCreated{Login: login})

	return login, nil
}

func (r *LoginRecorder) lookup(ctx context.Context, ip string) models.IPInsights {
	if ip == "" {
		return models.IPInsights{}
	}

	insights, err := r.locator.Lookup(ctx, ip)
	if err != nil {
		if !errors.Is(err, geo.ErrDisabled) {
			r.logger.Warn("ip geolocation failed", slog.String("ip_address", ip), slog.Any("error", err))
		}
		return models.IPInsights{}
	}
	return insights
}
