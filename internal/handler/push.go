package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ewhitfield/tend/internal/model"
	"github.com/ewhitfield/tend/internal/push"
	"github.com/ewhitfield/tend/internal/store"
	"github.com/ewhitfield/tend/internal/websocket"
)

type PushHandler struct {
	pushes  *store.PushStore
	service *push.Service
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, hub *websocket.Hub, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushes: ps, service: svc, hub: hub, logger: logger}
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

type subscribeRequest struct {
	MemberID   string `json:"member_id"`
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.MemberID == "" || req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "member_id, endpoint, p256dh, and auth are required")
		return
	}

	sub, err := h.pushes.CreateSubscription(req.MemberID, householdParam(r), req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/push/unsubscribe
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	if err := h.pushes.DeleteByEndpoint(req.Endpoint); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions?member_id=
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, "member_id is required")
		return
	}

	subs, err := h.pushes.ListByMember(memberID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetPreferences handles GET /api/push/preferences?member_id=
// The response is always a fully populated preference set; members who
// never saved one get the defaults.
func (h *PushHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, "member_id is required")
		return
	}

	prefs, err := h.pushes.GetPrefs(memberID)
	if err != nil {
		h.logger.Error("get notification prefs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/push/preferences?member_id=
// Fields missing from the body keep their defaults, so a stored
// preference set is never partial.
func (h *PushHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, "member_id is required")
		return
	}

	prefs := model.DefaultPrefs()
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.pushes.SavePrefs(memberID, householdParam(r), prefs); err != nil {
		h.logger.Error("save notification prefs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage(websocket.EntityPrefs, websocket.ActionUpdated, memberID))
	}

	writeJSON(w, http.StatusOK, prefs)
}
