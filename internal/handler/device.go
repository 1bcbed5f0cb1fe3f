package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"recipegram_22520060/internal/httputil"
	"recipegram_22520060/internal/model"
	"recipegram_22520060/internal/service"
	"recipegram_22520060/internal/transport/http/middleware"
)

// DeviceHandler exposes push notification device registration endpoints.
type DeviceHandler struct {
	deviceService *service.DeviceService
}

func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
	}
}

// Register handles POST /devices
// Records the caller's FCM registration token.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.deviceService.RegisterToken(r.Context(), userID, &req); err != nil {
		log.Printf("[ERROR] Register device handler: %v", err)
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device registered",
	})
}

// Unregister handles DELETE /devices
// Deactivates the given token, typically on logout.
func (h *DeviceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.UnregisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.deviceService.UnregisterToken(r.Context(), &req); err != nil {
		log.Printf("[ERROR] Unregister device handler: %v", err)
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device unregistered",
	})
}
