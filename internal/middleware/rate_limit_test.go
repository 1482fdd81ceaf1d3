package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/authtrail/internal/auth"
	"github.com/BradenHooton/authtrail/internal/models"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
)

func requestAs(service, remoteAddr string) *http.Request {
	req := httptest.NewRequest("POST", "/events/login", nil)
	req.RemoteAddr = remoteAddr
	if service != "" {
		claims := &models.ServiceClaims{Service: service}
		req = req.WithContext(context.WithValue(req.Context(), auth.ServiceContextKey, claims))
	}
	return req
}

func TestRateLimitByService_EnforcesLimitPerService(t *testing.T) {
	handler := RateLimitByService(RateLimitConfig{RequestsPerMinute: 3})(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs("identity-api", "10.0.0.1:1234"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs("identity-api", "10.0.0.2:1234"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the service budget is spent, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error body, got content type %q", ct)
	}

	// A different service has its own budget
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs("support-tool", "10.0.0.1:1234"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected other service to be allowed, got %d", rec.Code)
	}
}

func TestRateLimitByService_FallsBackToClientIP(t *testing.T) {
	handler := RateLimitByService(RateLimitConfig{
		RequestsPerMinute: 1,
		IPConfig:          &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}},
	})(okHandler())

	first := requestAs("", "10.0.0.1:1234")
	first.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Same proxy, different client: separate bucket
	second := requestAs("", "10.0.0.1:1234")
	second.Header.Set("X-Forwarded-For", "203.0.113.8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Errorf("expected different client IP to be allowed, got %d", rec.Code)
	}

	again := requestAs("", "10.0.0.1:1234")
	again.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, again)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for repeated client IP, got %d", rec.Code)
	}
}

func TestRateLimitByService_DisabledWhenZero(t *testing.T) {
	handler := RateLimitByService(RateLimitConfig{RequestsPerMinute: 0})(okHandler())

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs("identity-api", "10.0.0.1:1234"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with limiting disabled, got %d", i+1, rec.Code)
		}
	}
}
