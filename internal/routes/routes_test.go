package routes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/authtrail/internal/agent"
	"github.com/BradenHooton/authtrail/internal/auth"
	"github.com/BradenHooton/authtrail/internal/handlers"
	"github.com/BradenHooton/authtrail/internal/middleware"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/BradenHooton/authtrail/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routesTestSecret = "routes-test-secret-with-enough-entropy-0123456789"

func newTestRouter(t *testing.T) (http.Handler, *auth.TokenManager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm := auth.NewTokenManager(routesTestSecret)

	events := &handlers.MockAuthEventService{
		ResolveUserFunc: func(ctx context.Context, userID string) (*models.User, error) {
			return handlers.TestUser(), nil
		},
		OnLoginFunc: func(ctx context.Context, user *models.User, meta agent.RequestMeta) (*services.EventOutcome, error) {
			return &services.EventOutcome{Device: &models.Device{ID: "device-1"}, Recorded: true}, nil
		},
	}
	devices := &handlers.MockDeviceService{
		TrustDeviceFunc: func(ctx context.Context, userID, deviceID string) (*models.Device, error) {
			return &models.Device{ID: deviceID, UserID: userID, IsTrusted: true}, nil
		},
	}

	users := &handlers.MockUserService{
		GetUserFunc: func(ctx context.Context, id string) (*models.User, error) {
			return handlers.TestUser(), nil
		},
	}

	router := chi.NewRouter()
	RegisterRoutes(router, Handlers{
		Events:  handlers.NewAuthEventHandler(events, nil, "", logger),
		Devices: handlers.NewDeviceHandler(devices, devices),
		History: handlers.NewHistoryHandler(&handlers.MockHistoryService{}),
		Users:   handlers.NewUserHandler(users),
		Audit:   handlers.NewAuditHandler(&handlers.MockAuditService{}),
	}, tm, middleware.RateLimitConfig{RequestsPerMinute: 1000}, logger)

	return router, tm
}

func TestRoutes_ScopeEnforcement(t *testing.T) {
	router, tm := newTestRouter(t)

	tests := []struct {
		name       string
		scopes     []string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "events with events scope", scopes: []string{models.ScopeEventsWrite}, method: "POST", path: "/events/login", body: `{"user_id":"user-1"}`, wantStatus: 200},
		{name: "events with history scope", scopes: []string{models.ScopeHistoryRead}, method: "POST", path: "/events/login", body: `{"user_id":"user-1"}`, wantStatus: 403},
		{name: "devices with history scope", scopes: []string{models.ScopeHistoryRead}, method: "GET", path: "/users/user-1/devices", wantStatus: 200},
		{name: "logins with wildcard", scopes: []string{models.ScopeAll}, method: "GET", path: "/users/user-1/logins", wantStatus: 200},
		{name: "summary with history scope", scopes: []string{models.ScopeHistoryRead}, method: "GET", path: "/users/user-1/logins/summary", wantStatus: 200},
		{name: "trust with devices scope", scopes: []string{models.ScopeDevicesWrite}, method: "POST", path: "/users/user-1/devices/device-1/trust", wantStatus: 200},
		{name: "trust with history scope", scopes: []string{models.ScopeHistoryRead}, method: "POST", path: "/users/user-1/devices/device-1/trust", wantStatus: 403},
		{name: "user sync with users scope", scopes: []string{models.ScopeUsersWrite}, method: "PUT", path: "/users/user-1", body: `{"email":"user@example.com"}`, wantStatus: 200},
		{name: "user read with users scope", scopes: []string{models.ScopeUsersWrite}, method: "GET", path: "/users/user-1", wantStatus: 200},
		{name: "user read with history scope", scopes: []string{models.ScopeHistoryRead}, method: "GET", path: "/users/user-1", wantStatus: 200},
		{name: "user read with devices scope", scopes: []string{models.ScopeDevicesWrite}, method: "GET", path: "/users/user-1", wantStatus: 403},
		{name: "devices with devices scope", scopes: []string{models.ScopeDevicesWrite}, method: "GET", path: "/users/user-1/devices", wantStatus: 200},
		{name: "devices with events scope", scopes: []string{models.ScopeEventsWrite}, method: "GET", path: "/users/user-1/devices", wantStatus: 403},
		{name: "logins with devices scope", scopes: []string{models.ScopeDevicesWrite}, method: "GET", path: "/users/user-1/logins", wantStatus: 403},
		{name: "user sync with events scope", scopes: []string{models.ScopeEventsWrite}, method: "PUT", path: "/users/user-1", body: `{"email":"user@example.com"}`, wantStatus: 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tm.GenerateServiceToken("test-service", tt.scopes, time.Hour)
			require.NoError(t, err)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutes_RequireServiceToken(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/users/user-1/devices", "/users/user-1/logins", "/users/user-1/audit"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
