package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/authtrail/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryService answers read queries over a user's devices and logins
type HistoryService struct {
	devices DeviceRepository
	logins  LoginRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(devices DeviceRepository, logins LoginRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		devices: devices,
		logins:  logins,
		logger:  logger,
		now:     time.Now,
	}
}

// ListDevices returns the user's devices in creation order
func (s *HistoryService) ListDevices(ctx context.Context, userID string) ([]*models.Device, error) {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list devices", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return devices, nil
}

// ListLogins returns the user's logins newest first. An empty types slice means all types.
func (s *HistoryService) ListLogins(ctx context.Context, userID string, types []models.LoginType, limit, offset int) ([]*models.Login, error) {
	limit, offset = clampPage(limit, offset)

	logins, err := s.logins.ListByUser(ctx, userID, types, limit, offset)
	if err != nil {
		s.logger.Error("failed to list logins", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return logins, nil
}

// LastLogin returns the user's most recent successful login
func (s *HistoryService) LastLogin(ctx context.Context, userID string) (*models.Login, error) {
	return s.logins.LatestForUser(ctx, userID, []models.LoginType{models.LoginTypeLogin})
}

// Summary counts the user's logins by type over the window ending now
func (s *HistoryService) Summary(ctx context.Context, userID string, window time.Duration) (*models.LoginSummary, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", models.ErrBadRequest)
	}
	since := s.now().UTC().Add(-window)

	counts, err := s.logins.CountByType(ctx, userID, since)
	if err != nil {
		s.logger.Error("failed to count logins", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	deviceCount, err := s.devices.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count devices", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	summary := &models.LoginSummary{
		UserID:   userID,
		Since:    since,
		Logins:   counts[models.LoginTypeLogin],
		Failed:   counts[models.LoginTypeFailed],
		Lockouts: counts[models.LoginTypeLockout],
		Devices:  deviceCount,
	}

	last, err := s.LastLogin(ctx, userID)
	switch {
	case err == nil:
		summary.Last = last
	case !isNotFound(err):
		s.logger.Error("failed to load last login", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	return summary, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
