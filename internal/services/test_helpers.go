package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/authtrail/internal/agent"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc      func(ctx context.Context, id string) (*models.User, error)
	FindByColumnFunc func(ctx context.Context, column, value string) (*models.User, error)
	UpsertFunc       func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) FindByColumn(ctx context.Context, column, value string) (*models.User, error) {
	if m.FindByColumnFunc != nil {
		return m.FindByColumnFunc(ctx, column, value)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

// MockDeviceRepository implements DeviceRepository for testing
type MockDeviceRepository struct {
	CreateFunc           func(ctx context.Context, device *models.Device) (*models.Device, error)
	ListByUserFunc       func(ctx context.Context, userID string) ([]*models.Device, error)
	GetByIDFunc          func(ctx context.Context, userID, deviceID string) (*models.Device, error)
	UpdateTrustFunc      func(ctx context.Context, userID, deviceID string, trusted, untrusted bool, verifiedAt *time.Time) (*models.Device, error)
	ConsumePinFunc       func(ctx context.Context, userID, deviceID string, verifiedAt time.Time) (*models.Device, error)
	RecordPinFailureFunc func(ctx context.Context, userID, deviceID string) (int, error)
	CountByUserFunc      func(ctx context.Context, userID string) (int, error)
}

func (m *MockDeviceRepository) Create(ctx context.Context, device *models.Device) (*models.Device, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, device)
	}
	return nil, models.ErrInternalServer
}

func (m *MockDeviceRepository) ListByUser(ctx context.Context, userID string) ([]*models.Device, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.Device{}, nil
}

func (m *MockDeviceRepository) GetByID(ctx context.Context, userID, deviceID string) (*models.Device, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, deviceID)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceRepository) UpdateTrust(ctx context.Context, userID, deviceID string, trusted, untrusted bool, verifiedAt *time.Time) (*models.Device, error) {
	if m.UpdateTrustFunc != nil {
		return m.UpdateTrustFunc(ctx, userID, deviceID, trusted, untrusted, verifiedAt)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceRepository) ConsumePin(ctx context.Context, userID, deviceID string, verifiedAt time.Time) (*models.Device, error) {
	if m.ConsumePinFunc != nil {
		return m.ConsumePinFunc(ctx, userID, deviceID, verifiedAt)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceRepository) RecordPinFailure(ctx context.Context, userID, deviceID string) (int, error) {
	if m.RecordPinFailureFunc != nil {
		return m.RecordPinFailureFunc(ctx, userID, deviceID)
	}
	return 0, models.ErrNotFound
}

func (m *MockDeviceRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	if m.CountByUserFunc != nil {
		return m.CountByUserFunc(ctx, userID)
	}
	return 0, nil
}

// MockLoginRepository implements LoginRepository for testing
type MockLoginRepository struct {
	CreateFunc          func(ctx context.Context, login *models.Login) (*models.Login, error)
	LatestForDeviceFunc func(ctx context.Context, deviceID string) (*models.Login, error)
	LatestForUserFunc   func(ctx context.Context, userID string, types []models.LoginType) (*models.Login, error)
	ListByUserFunc      func(ctx context.Context, userID string, types []models.LoginType, limit, offset int) ([]*models.Login, error)
	CountByTypeFunc     func(ctx context.Context, userID string, since time.Time) (map[models.LoginType]int64, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockLoginRepository) Create(ctx context.Context, login *models.Login) (*models.Login, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, login)
	}
	return nil, models.ErrInternalServer
}

func (m *MockLoginRepository) LatestForDevice(ctx context.Context, deviceID string) (*models.Login, error) {
	if m.LatestForDeviceFunc != nil {
		return m.LatestForDeviceFunc(ctx, deviceID)
	}
	return nil, models.ErrNotFound
}

func (m *MockLoginRepository) LatestForUser(ctx context.Context, userID string, types []models.LoginType) (*models.Login, error) {
	if m.LatestForUserFunc != nil {
		return m.LatestForUserFunc(ctx, userID, types)
	}
	return nil, models.ErrNotFound
}

func (m *MockLoginRepository) ListByUser(ctx context.Context, userID string, types []models.LoginType, limit, offset int) ([]*models.Login, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, types, limit, offset)
	}
	return []*models.Login{}, nil
}

func (m *MockLoginRepository) CountByType(ctx context.Context, userID string, since time.Time) (map[models.LoginType]int64, error) {
	if m.CountByTypeFunc != nil {
		return m.CountByTypeFunc(ctx, userID, since)
	}
	return map[models.LoginType]int64{}, nil
}

func (m *MockLoginRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockAuditLogRepository implements AuditLogRepository for testing
type MockAuditLogRepository struct {
	CreateFunc       func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	GetByActorIDFunc func(ctx context.Context, actorID string, limit, offset int) ([]*models.AuditLog, error)
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockAuditLogRepository) GetByActorID(ctx context.Context, actorID string, limit, offset int) ([]*models.AuditLog, error) {
	if m.GetByActorIDFunc != nil {
		return m.GetByActorIDFunc(ctx, actorID, limit, offset)
	}
	return nil, nil
}

// MockLocator implements geo.Locator for testing
type MockLocator struct {
	LookupFunc func(ctx context.Context, ip string) (models.IPInsights, error)
}

func (m *MockLocator) Lookup(ctx context.Context, ip string) (models.IPInsights, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, ip)
	}
	return models.IPInsights{}, nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockEmailSender) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

// MockDescriptorParser returns a fixed descriptor, stamping the request IP and fingerprint
type MockDescriptorParser struct {
	Descriptor models.AgentDescriptor
}

func (m *MockDescriptorParser) Describe(meta agent.RequestMeta) models.AgentDescriptor {
	d := m.Descriptor
	d.IPAddress = meta.IPAddress
	d.SessionFingerprint = meta.SessionFingerprint
	return d
}

// memoryStore backs device and login mocks with in-memory state
type memoryStore struct {
	mu      sync.Mutex
	devices []*models.Device
	logins  []*models.Login
	seq     int
	now     func() time.Time
}

func newMemoryStore(now func() time.Time) *memoryStore {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{now: now}
}

func (s *memoryStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memoryStore) deviceRepo() *MockDeviceRepository {
	return &MockDeviceRepository{
		CreateFunc: func(ctx context.Context, device *models.Device) (*models.Device, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			d := *device
			d.ID = s.nextID("device")
			d.CreatedAt = s.now()
			s.devices = append(s.devices, &d)
			return &d, nil
		},
		ListByUserFunc: func(ctx context.Context, userID string) ([]*models.Device, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			out := make([]*models.Device, 0)
			for _, d := range s.devices {
				if d.UserID == userID {
					out = append(out, d)
				}
			}
			return out, nil
		},
		GetByIDFunc: func(ctx context.Context, userID, deviceID string) (*models.Device, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, d := range s.devices {
				if d.UserID == userID && d.ID == deviceID {
					return d, nil
				}
			}
			return nil, models.ErrNotFound
		},
		UpdateTrustFunc: func(ctx context.Context, userID, deviceID string, trusted, untrusted bool, verifiedAt *time.Time) (*models.Device, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, d := range s.devices {
				if d.UserID == userID && d.ID == deviceID {
					d.IsTrusted = trusted
					d.IsUntrusted = untrusted
					if verifiedAt != nil {
						d.VerifiedAt = verifiedAt
					}
					return d, nil
				}
			}
			return nil, models.ErrNotFound
		},
		ConsumePinFunc: func(ctx context.Context, userID, deviceID string, verifiedAt time.Time) (*models.Device, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, d := range s.devices {
				if d.UserID == userID && d.ID == deviceID && d.PinHash != "" {
					d.PinHash = ""
					d.PinAttempts = 0
					d.IsTrusted = true
					d.IsUntrusted = false
					d.VerifiedAt = &verifiedAt
					return d, nil
				}
			}
			return nil, models.ErrNotFound
		},
		RecordPinFailureFunc: func(ctx context.Context, userID, deviceID string) (int, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, d := range s.devices {
				if d.UserID == userID && d.ID == deviceID {
					d.PinAttempts++
					return d.PinAttempts, nil
				}
			}
			return 0, models.ErrNotFound
		},
		CountByUserFunc: func(ctx context.Context, userID string) (int, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			n := 0
			for _, d := range s.devices {
				if d.UserID == userID {
					n++
				}
			}
			return n, nil
		},
	}
}

func (s *memoryStore) loginRepo() *MockLoginRepository {
	return &MockLoginRepository{
		CreateFunc: func(ctx context.Context, login *models.Login) (*models.Login, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			l := *login
			l.ID = s.nextID("login")
			l.CreatedAt = s.now()
			s.logins = append(s.logins, &l)
			return &l, nil
		},
		LatestForDeviceFunc: func(ctx context.Context, deviceID string) (*models.Login, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			var latest *models.Login
			for _, l := range s.logins {
				if l.DeviceID == deviceID && (latest == nil || !l.CreatedAt.Before(latest.CreatedAt)) {
					latest = l
				}
			}
			if latest == nil {
				return nil, models.ErrNotFound
			}
			return latest, nil
		},
	}
}

func (s *memoryStore) deviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

func (s *memoryStore) loginsOfType(t models.LoginType) []*models.Login {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Login, 0)
	for _, l := range s.logins {
		if l.Type == t {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// addLogin seeds a login created at the given time
func (s *memoryStore) addLogin(deviceID string, t models.LoginType, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins = append(s.logins, &models.Login{
		ID:        s.nextID("login"),
		DeviceID:  deviceID,
		Type:      t,
		CreatedAt: at,
	})
}

// hashPin hashes with the minimum cost to keep tests fast
func hashPin(pin string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}
