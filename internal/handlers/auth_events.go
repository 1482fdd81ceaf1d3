package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/authtrail/internal/agent"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/BradenHooton/authtrail/internal/services"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
)

// AuthEventServiceInterface defines the interface for authentication event intake
type AuthEventServiceInterface interface {
	ResolveUser(ctx context.Context, userID string) (*models.User, error)
	OnLogin(ctx context.Context, user *models.User, meta agent.RequestMeta) (*services.EventOutcome, error)
	OnFailed(ctx context.Context, user *models.User, meta agent.RequestMeta) (*services.EventOutcome, error)
	OnLockout(ctx context.Context, payload map[string]any, meta agent.RequestMeta) (*services.EventOutcome, error)
}

// AuthEventHandler receives authentication events from the host identity system
type AuthEventHandler struct {
	service           AuthEventServiceInterface
	ipConfig          *pkghttp.IPConfig
	fingerprintHeader string
	logger            *slog.Logger
}

// NewAuthEventHandler creates a new AuthEventHandler
func NewAuthEventHandler(service AuthEventServiceInterface, ipConfig *pkghttp.IPConfig, fingerprintHeader string, logger *slog.Logger) *AuthEventHandler {
	return &AuthEventHandler{
		service:           service,
		ipConfig:          ipConfig,
		fingerprintHeader: fingerprintHeader,
		logger:            logger,
	}
}

// Request DTOs

// UserEventRequest is the body of a login or failed-login event. Client fields
// that are left out fall back to the inbound request.
type UserEventRequest struct {
	UserID string             `json:"user_id" validate:"required,max=255"`
	Client *agent.RequestMeta `json:"client,omitempty"`
}

// LockoutEventRequest carries the login request the host system saw for a locked
// out account, e.g. {"email": "user@example.com", "remember": true}. Only the
// configured lookup column is read, and it must be a string.
type LockoutEventRequest struct {
	Payload map[string]any     `json:"payload" validate:"required"`
	Client  *agent.RequestMeta `json:"client,omitempty"`
}

// Login records a successful authentication
//
// @Router /events/login [post]
func (h *AuthEventHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.handleUserEvent(w, r, h.service.OnLogin)
}

// Failed records a failed authentication attempt
//
// @Router /events/failed [post]
func (h *AuthEventHandler) Failed(w http.ResponseWriter, r *http.Request) {
	h.handleUserEvent(w, r, h.service.OnFailed)
}

// Lockout records a lockout. Responds 204 when the payload does not resolve to a user.
//
// @Router /events/lockout [post]
func (h *AuthEventHandler) Lockout(w http.ResponseWriter, r *http.Request) {
	var req LockoutEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	outcome, err := h.service.OnLockout(r.Context(), req.Payload, h.clientMeta(r, req.Client))
	if err != nil {
		h.logger.Error("failed to record lockout", slog.Any("error", err))
		pkghttp.WriteServiceError(w, err)
		return
	}

	if outcome == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, outcome)
}

type userEventFunc func(ctx context.Context, user *models.User, meta agent.RequestMeta) (*services.EventOutcome, error)

func (h *AuthEventHandler) handleUserEvent(w http.ResponseWriter, r *http.Request, record userEventFunc) {
	var req UserEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.ResolveUser(r.Context(), req.UserID)
	if err != nil {
		pkghttp.WriteServiceError(w, err)
		return
	}

	outcome, err := record(r.Context(), user, h.clientMeta(r, req.Client))
	if err != nil {
		h.logger.Error("failed to record authentication event",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		pkghttp.WriteServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, outcome)
}

func (h *AuthEventHandler) clientMeta(r *http.Request, client *agent.RequestMeta) agent.RequestMeta {
	fallback := agent.MetaFromRequest(r, h.ipConfig, h.fingerprintHeader)
	if client == nil {
		return fallback
	}
	return client.Merge(fallback)
}
