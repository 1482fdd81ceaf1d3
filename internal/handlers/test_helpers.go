package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/authtrail/internal/agent"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/BradenHooton/authtrail/internal/services"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// WithChiRouteContext adds chi URL parameters to request context for testing
//
// Example usage:
//
//	req := httptest.NewRequest("POST", "/users/user123/devices/d1/trust", nil)
//	req = WithChiRouteContext(req, map[string]string{
//	    "id":       "user123",
//	    "deviceID": "d1",
//	})
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestUser returns a user fixture
func TestUser() *models.User {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.User{
		ID:        "user-1",
		Email:     "user@example.com",
		Name:      "Test User",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MockAuthEventService implements AuthEventServiceInterface for testing
type MockAuthEventService struct {
	ResolveUserFunc func(ctx context.Context, userID string) (*models.User, error)
	OnLoginFunc     func(ctx context.Context, user *models.User, meta agent.RequestMeta) (*services.EventOutcome, error)
	OnFailedFunc    func(ctx context.Context, user *models.User, meta agent.RequestMeta) (*services.EventOutcome, error)
	OnLockoutFunc   func(ctx context.Context, payload map[string]any, meta agent.RequestMeta) (*services.EventOutcome, error)
}

func (m *MockAuthEventService) ResolveUser(ctx context.Context, userID string) (*models.User, error) {
	if m.ResolveUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ResolveUserFunc(ctx, userID)
}

func (m *MockAuthEventService) OnLogin(ctx context.Context, user *models.User, meta agent.RequestMeta) (*services.EventOutcome, error) {
	if m.OnLoginFunc == nil {
		return &services.EventOutcome{}, nil
	}
	return m.OnLoginFunc(ctx, user, meta)
}

func (m *MockAuthEventService) OnFailed(ctx context.Context, user *models.User, meta agent.RequestMeta) (*services.EventOutcome, error) {
	if m.OnFailedFunc == nil {
		return &services.EventOutcome{}, nil
	}
	return m.OnFailedFunc(ctx, user, meta)
}

func (m *MockAuthEventService) OnLockout(ctx context.Context, payload map[string]any, meta agent.RequestMeta) (*services.EventOutcome, error) {
	if m.OnLockoutFunc == nil {
		return nil, nil
	}
	return m.OnLockoutFunc(ctx, payload, meta)
}

// MockDeviceService implements DeviceServiceInterface and DeviceLister for testing
type MockDeviceService struct {
	TrustDeviceFunc     func(ctx context.Context, userID, deviceID string) (*models.Device, error)
	UntrustDeviceFunc   func(ctx context.Context, userID, deviceID string) (*models.Device, error)
	VerifyDevicePinFunc func(ctx context.Context, userID, deviceID, pin string) (*models.Device, error)
	ListDevicesFunc     func(ctx context.Context, userID string) ([]*models.Device, error)
}

func (m *MockDeviceService) TrustDevice(ctx context.Context, userID, deviceID string) (*models.Device, error) {
	if m.TrustDeviceFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.TrustDeviceFunc(ctx, userID, deviceID)
}

func (m *MockDeviceService) UntrustDevice(ctx context.Context, userID, deviceID string) (*models.Device, error) {
	if m.UntrustDeviceFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UntrustDeviceFunc(ctx, userID, deviceID)
}

func (m *MockDeviceService) VerifyDevicePin(ctx context.Context, userID, deviceID, pin string) (*models.Device, error) {
	if m.VerifyDevicePinFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.VerifyDevicePinFunc(ctx, userID, deviceID, pin)
}

func (m *MockDeviceService) ListDevices(ctx context.Context, userID string) ([]*models.Device, error) {
	if m.ListDevicesFunc == nil {
		return nil, nil
	}
	return m.ListDevicesFunc(ctx, userID)
}

// MockHistoryService implements HistoryServiceInterface for testing
type MockHistoryService struct {
	ListLoginsFunc func(ctx context.Context, userID string, types []models.LoginType, limit, offset int) ([]*models.Login, error)
	LastLoginFunc  func(ctx context.Context, userID string) (*models.Login, error)
	SummaryFunc    func(ctx context.Context, userID string, window time.Duration) (*models.LoginSummary, error)
}

func (m *MockHistoryService) ListLogins(ctx context.Context, userID string, types []models.LoginType, limit, offset int) ([]*models.Login, error) {
	if m.ListLoginsFunc == nil {
		return nil, nil
	}
	return m.ListLoginsFunc(ctx, userID, types, limit, offset)
}

func (m *MockHistoryService) LastLogin(ctx context.Context, userID string) (*models.Login, error) {
	if m.LastLoginFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.LastLoginFunc(ctx, userID)
}

func (m *MockHistoryService) Summary(ctx context.Context, userID string, window time.Duration) (*models.LoginSummary, error) {
	if m.SummaryFunc == nil {
		return &models.LoginSummary{UserID: userID}, nil
	}
	return m.SummaryFunc(ctx, userID, window)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	GetUserFunc  func(ctx context.Context, id string) (*models.User, error)
	SyncUserFunc func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserFunc(ctx, id)
}

func (m *MockUserService) SyncUser(ctx context.Context, user *models.User) (*models.User, error) {
	if m.SyncUserFunc == nil {
		return user, nil
	}
	return m.SyncUserFunc(ctx, user)
}

// MockAuditService implements AuditServiceInterface for testing
type MockAuditService struct {
	GetUserAuditTrailFunc func(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error)
}

func (m *MockAuditService) GetUserAuditTrail(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error) {
	if m.GetUserAuditTrailFunc == nil {
		return nil, nil
	}
	return m.GetUserAuditTrailFunc(ctx, userID, limit, offset)
}
