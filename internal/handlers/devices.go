package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/BradenHooton/authtrail/internal/models"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
	"github.com/go-chi/chi/v5"
)

// DeviceServiceInterface defines the device trust operations exposed over HTTP
type DeviceServiceInterface interface {
	TrustDevice(ctx context.Context, userID, deviceID string) (*models.Device, error)
	UntrustDevice(ctx context.Context, userID, deviceID string) (*models.Device, error)
	VerifyDevicePin(ctx context.Context, userID, deviceID, pin string) (*models.Device, error)
}

// DeviceLister lists a user's devices
type DeviceLister interface {
	ListDevices(ctx context.Context, userID string) ([]*models.Device, error)
}

// DeviceHandler handles device-related HTTP requests
type DeviceHandler struct {
	service DeviceServiceInterface
	history DeviceLister
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(service DeviceServiceInterface, history DeviceLister) *DeviceHandler {
	return &DeviceHandler{
		service: service,
		history: history,
	}
}

// VerifyDeviceRequest represents the request body for pin verification
type VerifyDeviceRequest struct {
	Pin string `json:"pin" validate:"required,len=6,numeric"`
}

// ListDevicesResponse represents a user's devices
type ListDevicesResponse struct {
	Devices []*models.Device `json:"devices"`
	Total   int              `json:"total"`
}

// ListDevices returns the devices a user has authenticated from, oldest first
//
// @Router /users/{id}/devices [get]
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	devices, err := h.history.ListDevices(r.Context(), userID)
	if err != nil {
		pkghttp.WriteServiceError(w, err)
		return
	}
	if devices == nil {
		devices = []*models.Device{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, ListDevicesResponse{Devices: devices, Total: len(devices)})
}

// VerifyDevice trusts a device when the pin issued at creation matches
//
// @Router /users/{id}/devices/{deviceID}/verify [post]
func (h *DeviceHandler) VerifyDevice(w http.ResponseWriter, r *http.Request) {
	userID, deviceID, ok := devicePath(w, r)
	if !ok {
		return
	}

	var req VerifyDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	device, err := h.service.VerifyDevicePin(r.Context(), userID, deviceID, req.Pin)
	if err != nil {
		pkghttp.WriteServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, device)
}

// TrustDevice marks a device as trusted
//
// @Router /users/{id}/devices/{deviceID}/trust [post]
func (h *DeviceHandler) TrustDevice(w http.ResponseWriter, r *http.Request) {
	h.setTrust(w, r, h.service.TrustDevice)
}

// UntrustDevice marks a device as not trusted
//
// @Router /users/{id}/devices/{deviceID}/untrust [post]
func (h *DeviceHandler) UntrustDevice(w http.ResponseWriter, r *http.Request) {
	h.setTrust(w, r, h.service.UntrustDevice)
}

func (h *DeviceHandler) setTrust(w http.ResponseWriter, r *http.Request, update func(ctx context.Context, userID, deviceID string) (*models.Device, error)) {
	userID, deviceID, ok := devicePath(w, r)
	if !ok {
		return
	}

	device, err := update(r.Context(), userID, deviceID)
	if err != nil {
		pkghttp.WriteServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, device)
}

func devicePath(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID := chi.URLParam(r, "id")
	deviceID := chi.URLParam(r, "deviceID")
	if userID == "" || deviceID == "" {
		pkghttp.WriteBadRequest(w, "User ID and device ID are required")
		return "", "", false
	}
	return userID, deviceID, true
}
