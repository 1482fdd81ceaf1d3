package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/authtrail/internal/models"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
	"github.com/go-chi/chi/v5"
)

const defaultSummaryWindow = 24 * time.Hour

// HistoryServiceInterface defines the login history queries
type HistoryServiceInterface interface {
	ListLogins(ctx context.Context, userID string, types []models.LoginType, limit, offset int) ([]*models.Login, error)
	LastLogin(ctx context.Context, userID string) (*models.Login, error)
	Summary(ctx context.Context, userID string, window time.Duration) (*models.LoginSummary, error)
}

// HistoryHandler serves a user's login history
type HistoryHandler struct {
	service HistoryServiceInterface
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(service HistoryServiceInterface) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// ListLoginsResponse represents a page of logins
type ListLoginsResponse struct {
	Logins []*models.Login `json:"logins"`
	Count  int             `json:"count"`
	Offset int             `json:"offset"`
}

// ListLogins returns the user's logins newest first
//
// @Param type query string false "Comma separated login types (login, failed, lockout)"
// @Param limit query int false "Limit (default 50, max 500)"
// @Param offset query int false "Offset (default 0)"
// @Router /users/{id}/logins [get]
func (h *HistoryHandler) ListLogins(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	types, err := parseLoginTypes(r.URL.Query()["type"])
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	limit, offset, err := parsePage(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	logins, err := h.service.ListLogins(r.Context(), userID, types, limit, offset)
	if err != nil {
		pkghttp.WriteServiceError(w, err)
		return
	}
	if logins == nil {
		logins = []*models.Login{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, ListLoginsResponse{Logins: logins, Count: len(logins), Offset: offset})
}

// LastLogin returns the user's most recent successful login
//
// @Router /users/{id}/logins/last [get]
func (h *HistoryHandler) LastLogin(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	login, err := h.service.LastLogin(r.Context(), userID)
	if err != nil {
		pkghttp.WriteServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, login)
}

// Summary counts the user's logins by type
//
// @Param since query string false "Look-back window as a Go duration (default 24h)"
// @Router /users/{id}/logins/summary [get]
func (h *HistoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	window := defaultSummaryWindow
	if since := r.URL.Query().Get("since"); since != "" {
		d, err := time.ParseDuration(since)
		if err != nil || d <= 0 {
			pkghttp.WriteBadRequest(w, "since must be a positive duration such as 24h")
			return
		}
		window = d
	}

	summary, err := h.service.Summary(r.Context(), userID, window)
	if err != nil {
		pkghttp.WriteServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, summary)
}

// parseLoginTypes accepts repeated and comma separated type parameters
func parseLoginTypes(values []string) ([]models.LoginType, error) {
	var types []models.LoginType
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := models.ParseLoginType(part)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
	}
	return types, nil
}

// parsePage reads limit and offset. Zero values are left for the service to default.
func parsePage(r *http.Request) (int, int, error) {
	limit, offset := 0, 0

	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 0 {
			return 0, 0, errInvalidQuery("limit")
		}
		limit = l
	}

	if s := r.URL.Query().Get("offset"); s != "" {
		o, err := strconv.Atoi(s)
		if err != nil || o < 0 {
			return 0, 0, errInvalidQuery("offset")
		}
		offset = o
	}

	return limit, offset, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string {
	return string(e) + " must be a non-negative integer"
}
