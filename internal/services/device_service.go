package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	pinDigits = 6

	// maxPinAttempts failed guesses lock pin verification for a device
	maxPinAttempts = 5
)

// DeviceRepository defines the interface for device data access
type DeviceRepository interface {
	Create(ctx context.Context, device *models.Device) (*models.Device, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Device, error)
	GetByID(ctx context.Context, userID, deviceID string) (*models.Device, error)
	UpdateTrust(ctx context.Context, userID, deviceID string, trusted, untrusted bool, verifiedAt *time.Time) (*models.Device, error)
	ConsumePin(ctx context.Context, userID, deviceID string, verifiedAt time.Time) (*models.Device, error)
	RecordPinFailure(ctx context.Context, userID, deviceID string) (int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// DeviceAuditor records trust changes made to a device
type DeviceAuditor interface {
	LogDeviceTrust(ctx context.Context, device *models.Device, action string, success bool, failureReason *string)
}

// DeviceService is the registry of devices a user has authenticated from
type DeviceService struct {
	repo    DeviceRepository
	matcher *DeviceMatcher
	sink    events.Sink
	auditor DeviceAuditor
	logger  *slog.Logger

	pinCost int
	now     func() time.Time
}

// NewDeviceService creates a new DeviceService. auditor may be nil.
func NewDeviceService(repo DeviceRepository, matcher *DeviceMatcher, sink events.Sink, auditor DeviceAuditor, logger *slog.Logger) *DeviceService {
	if sink == nil {
		sink = events.Discard
	}
	return &DeviceService{
		repo:    repo,
		matcher: matcher,
		sink:    sink,
		auditor: auditor,
		logger:  logger,
		pinCost: bcrypt.DefaultCost,
		now:     time.Now,
	}
}

// FindDevice returns the first of the user's devices, in creation order, that matches
// the descriptor. It returns models.ErrNotFound when nothing matches.
func (s *DeviceService) FindDevice(ctx context.Context, user *models.User, desc models.AgentDescriptor) (*models.Device, error) {
	devices, err := s.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	for _, d := range devices {
		if s.matcher.Matches(d, desc) {
			return d, nil
		}
	}

	return nil, models.ErrNotFound
}

// CreateDevice persists a device built from the descriptor and emits DeviceCreated
func (s *DeviceService) CreateDevice(ctx context.Context, user *models.User, desc models.AgentDescriptor) (*models.Device, error) {
	pin, err := generatePin()
	if err != nil {
		return nil, fmt.Errorf("failed to generate device pin: %w", err)
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), s.pinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash device pin: %w", err)
	}

	device, err := s.repo.Create(ctx, &models.Device{
		UserID:          user.ID,
		Platform:        desc.Platform,
		PlatformVersion: normalizeVersion(desc.PlatformVersion),
		Browser:         desc.Browser,
		BrowserVersion:  desc.BrowserVersion,
		IsDesktop:       desc.IsDesktop,
		IsMobile:        desc.IsMobile,
		Language:        desc.PreferredLanguage(),
		Fingerprint:     desc.SessionFingerprint,
		IPAddress:       desc.IPAddress,
		PinHash:         string(pinHash),
	})
	if err != nil {
		s.logger.Error("failed to create device", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	s.logger.Info("new device registered",
		slog.String("user_id", user.ID),
		slog.String("device_id", device.ID),
		slog.String("device", device.Label()),
	)

	s.sink.Emit(ctx, events.DeviceCreated{Device: device, Pin: pin})

	return device, nil
}

// FindOrCreateDevice always yields a device, creating one when no stored device matches
func (s *DeviceService) FindOrCreateDevice(ctx context.Context, user *models.User, desc models.AgentDescriptor) (*models.Device, error) {
	device, err := s.FindDevice(ctx, user, desc)
	if err == nil {
		return device, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return s.CreateDevice(ctx, user, desc)
}

// TrustDevice marks a device as trusted by the user
func (s *DeviceService) TrustDevice(ctx context.Context, userID, deviceID string) (*models.Device, error) {
	now := s.now().UTC()
	return s.setTrust(ctx, userID, deviceID, true, false, &now, models.AuditActionUpdate)
}

// UntrustDevice marks a device as explicitly not trusted
func (s *DeviceService) UntrustDevice(ctx context.Context, userID, deviceID string) (*models.Device, error) {
	return s.setTrust(ctx, userID, deviceID, false, true, nil, models.AuditActionUpdate)
}

// VerifyDevicePin trusts the device when pin matches the one issued at creation.
// A pin verifies at most once, and a device stops accepting guesses after
// maxPinAttempts failures.
func (s *DeviceService) VerifyDevicePin(ctx context.Context, userID, deviceID, pin string) (*models.Device, error) {
	device, err := s.repo.GetByID(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	if device.PinConsumed() {
		return nil, models.ErrPinConsumed
	}
	if device.PinAttempts >= maxPinAttempts {
		return nil, models.ErrTooManyAttempts
	}

	if err := bcrypt.CompareHashAndPassword([]byte(device.PinHash), []byte(pin)); err != nil {
		return nil, s.pinFailure(ctx, device)
	}

	verified, err := s.repo.ConsumePin(ctx, userID, deviceID, s.now().UTC())
	if errors.Is(err, models.ErrNotFound) {
		// a concurrent verification consumed the pin first
		return nil, models.ErrPinConsumed
	}
	if err != nil {
		s.logger.Error("failed to consume device pin",
			slog.String("device_id", deviceID),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.audit(ctx, verified, models.AuditActionAccess, true, nil)
	return verified, nil
}

func (s *DeviceService) pinFailure(ctx context.Context, device *models.Device) error {
	attempts, err := s.repo.RecordPinFailure(ctx, device.UserID, device.ID)
	if err != nil {
		s.logger.Error("failed to record pin failure",
			slog.String("device_id", device.ID),
			slog.Any("error", err),
		)
		return err
	}

	reason := "invalid pin"
	s.audit(ctx, device, models.AuditActionAccess, false, &reason)
	s.logger.Warn("device pin verification failed",
		slog.String("user_id", device.UserID),
		slog.String("device_id", device.ID),
		slog.Int("attempts", attempts),
	)

	if attempts >= maxPinAttempts {
		return models.ErrTooManyAttempts
	}
	return models.ErrInvalidPin
}

func (s *DeviceService) setTrust(ctx context.Context, userID, deviceID string, trusted, untrusted bool, verifiedAt *time.Time, action string) (*models.Device, error) {
	device, err := s.repo.UpdateTrust(ctx, userID, deviceID, trusted, untrusted, verifiedAt)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to update device trust",
				slog.String("device_id", deviceID),
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	s.audit(ctx, device, action, true, nil)
	return device, nil
}

func (s *DeviceService) audit(ctx context.Context, device *models.Device, action string, success bool, failureReason *string) {
	if s.auditor != nil {
		s.auditor.LogDeviceTrust(ctx, device, action, success, failureReason)
	}
}

// generatePin returns a zero-padded random decimal string
func generatePin() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < pinDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", pinDigits, n.Int64()), nil
}
