//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/authtrail/internal/agent"
	"github.com/BradenHooton/authtrail/internal/auth"
	"github.com/BradenHooton/authtrail/internal/database"
	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/geo"
	"github.com/BradenHooton/authtrail/internal/handlers"
	middlewareCustom "github.com/BradenHooton/authtrail/internal/middleware"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/BradenHooton/authtrail/internal/repositories"
	"github.com/BradenHooton/authtrail/internal/routes"
	"github.com/BradenHooton/authtrail/internal/services"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
)

const testServiceSecret = "integration-test-service-secret-0123456789abcdef"

// ServerOptions tune the stack built by NewTestServer
type ServerOptions struct {
	MatchingAttributes   []string
	LoginThrottleMinutes int
	LoginColumn          string
}

// TestServer runs the full HTTP stack against a real database
type TestServer struct {
	Server *httptest.Server
	Client *http.Client
	Events *events.Recorder
	Token  string
	Tokens *auth.TokenManager
}

// NewTestServer wires repositories, services and handlers the way cmd/api does.
// Events are delivered synchronously to a Recorder and the audit service.
func NewTestServer(db *database.DB, opts ServerOptions) (*TestServer, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("TEST_VERBOSE") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if opts.MatchingAttributes == nil {
		opts.MatchingAttributes = services.DefaultMatchAttributes
	}

	userRepo := repositories.NewUserRepository(db)
	deviceRepo := repositories.NewDeviceRepository(db)
	loginRepo := repositories.NewLoginRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	recorder := events.NewRecorder()
	auditService := services.NewAuditService(auditRepo, logger)
	sink := events.NewFanout(recorder, auditService)

	matcher, err := services.NewDeviceMatcher(opts.MatchingAttributes)
	if err != nil {
		return nil, err
	}

	deviceService := services.NewDeviceService(deviceRepo, matcher, sink, auditService, logger)
	loginRecorder := services.NewLoginRecorder(loginRepo, geo.NoopLocator{}, services.NewThrottlePolicy(opts.LoginThrottleMinutes), sink, logger)
	authEventService := services.NewAuthEventService(deviceService, loginRecorder, userRepo, agent.NewParser(), sink, opts.LoginColumn, logger)
	historyService := services.NewHistoryService(deviceRepo, loginRepo, logger)
	userService := services.NewUserService(userRepo, logger)

	ipConfig := &pkghttp.IPConfig{}
	h := routes.Handlers{
		Events:  handlers.NewAuthEventHandler(authEventService, ipConfig, "", logger),
		Devices: handlers.NewDeviceHandler(deviceService, historyService),
		History: handlers.NewHistoryHandler(historyService),
		Users:   handlers.NewUserHandler(userService),
		Audit:   handlers.NewAuditHandler(auditService),
	}

	tokenManager := auth.NewTokenManager(testServiceSecret)
	token, err := tokenManager.GenerateServiceToken("integration-tests", []string{models.ScopeAll}, time.Hour)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(chiMiddleware.Recoverer)
	routes.RegisterRoutes(router, h, tokenManager, middlewareCustom.RateLimitConfig{RequestsPerMinute: 0}, logger)

	server := httptest.NewServer(router)
	return &TestServer{
		Server: server,
		Client: server.Client(),
		Events: recorder,
		Token:  token,
		Tokens: tokenManager,
	}, nil
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// Request sends an authenticated JSON request
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode body: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.Token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return ts.Client.Do(req)
}

// ClientMeta builds the client section of an event body
func ClientMeta(ip, userAgent, language, fingerprint string) map[string]string {
	return map[string]string{
		"ip_address":          ip,
		"user_agent":          userAgent,
		"accept_language":     language,
		"session_fingerprint": fingerprint,
	}
}

// ParseJSONResponse decodes the response body and closes it
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
