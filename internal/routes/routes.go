package routes

import (
	"log/slog"

	"github.com/BradenHooton/authtrail/internal/auth"
	"github.com/BradenHooton/authtrail/internal/handlers"
	"github.com/BradenHooton/authtrail/internal/middleware"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Events  *handlers.AuthEventHandler
	Devices *handlers.DeviceHandler
	History *handlers.HistoryHandler
	Users   *handlers.UserHandler
	Audit   *handlers.AuditHandler
}

// RegisterRoutes registers all application routes. Every route requires a
// service token; scopes gate each group.
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	rateLimitConfig middleware.RateLimitConfig,
	logger *slog.Logger,
) {
	router.Group(func(r chi.Router) {
		r.Use(auth.ServiceAuth(tokenManager, logger))
		r.Use(middleware.CaptureService)
		r.Use(middleware.RateLimitByService(rateLimitConfig))

		// Authentication events from the host identity system
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(models.ScopeEventsWrite))
			r.Post("/events/login", h.Events.Login)
			r.Post("/events/failed", h.Events.Failed)
			r.Post("/events/lockout", h.Events.Lockout)
		})

		// User sync; syncing services may read back what they wrote
		r.With(auth.RequireScope(models.ScopeUsersWrite)).Put("/users/{id}", h.Users.SyncUser)
		r.With(auth.RequireAnyScope(models.ScopeHistoryRead, models.ScopeUsersWrite)).Get("/users/{id}", h.Users.GetUser)

		// Device listing serves both history readers and device trust managers
		r.With(auth.RequireAnyScope(models.ScopeHistoryRead, models.ScopeDevicesWrite)).Get("/users/{id}/devices", h.Devices.ListDevices)

		// History queries
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(models.ScopeHistoryRead))
			r.Get("/users/{id}/logins", h.History.ListLogins)
			r.Get("/users/{id}/logins/last", h.History.LastLogin)
			r.Get("/users/{id}/logins/summary", h.History.Summary)
			r.Get("/users/{id}/audit", h.Audit.GetUserAuditTrail)
		})

		// Device trust
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(models.ScopeDevicesWrite))
			r.Post("/users/{id}/devices/{deviceID}/verify", h.Devices.VerifyDevice)
			r.Post("/users/{id}/devices/{deviceID}/trust", h.Devices.TrustDevice)
			r.Post("/users/{id}/devices/{deviceID}/untrust", h.Devices.UntrustDevice)
		})
	})
}
