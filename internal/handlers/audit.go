package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/authtrail/internal/models"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AuditServiceInterface defines the audit trail query
type AuditServiceInterface interface {
	GetUserAuditTrail(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	auditService AuditServiceInterface
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService AuditServiceInterface) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// AuditLogResponse represents an audit log entry in HTTP response
type AuditLogResponse struct {
	ID            string                 `json:"id"`
	EventType     string                 `json:"event_type"`
	ActorID       *string                `json:"actor_id,omitempty"`
	ResourceType  *string                `json:"resource_type,omitempty"`
	ResourceID    *string                `json:"resource_id,omitempty"`
	Action        string                 `json:"action"`
	Success       bool                   `json:"success"`
	FailureReason *string                `json:"failure_reason,omitempty"`
	IPAddress     *string                `json:"ip_address,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     string                 `json:"created_at"`
}

// GetUserAuditTrail retrieves the audit trail for a specific user
//
// @Router /users/{id}/audit [get]
func (h *AuditHandler) GetUserAuditTrail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	limit, offset, err := parsePage(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	logs, err := h.auditService.GetUserAuditTrail(r.Context(), userID, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	response := make([]*AuditLogResponse, len(logs))
	for i, log := range logs {
		response[i] = auditLogToResponse(log)
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   response,
		"count":  len(response),
		"offset": offset,
	})
}

// auditLogToResponse converts an audit log model to a response DTO
func auditLogToResponse(log *models.AuditLog) *AuditLogResponse {
	return &AuditLogResponse{
		ID:            log.ID,
		EventType:     log.EventType,
		ActorID:       log.ActorID,
		ResourceType:  log.ResourceType,
		ResourceID:    log.ResourceID,
		Action:        log.Action,
		Success:       log.Success,
		FailureReason: log.FailureReason,
		IPAddress:     log.IPAddress,
		Metadata:      log.Metadata,
		CreatedAt:     log.CreatedAt.Format(time.RFC3339),
	}
}
