package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ewhitfield/tend/internal/model"
	"github.com/ewhitfield/tend/internal/store"
	"github.com/ewhitfield/tend/internal/websocket"
)

type MemberHandler struct {
	members *store.MemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{members: ms, hub: hub, logger: logger}
}

func (h *MemberHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type memberRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
	SortOrder   int    `json:"sort_order"`
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.members.Create(model.HouseholdMember{
		HouseholdID: householdParam(r),
		Name:        req.Name,
		Color:       req.Color,
		AvatarEmoji: req.AvatarEmoji,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create member")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionCreated, created.ID))

	writeJSON(w, http.StatusCreated, created)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.ListByHousehold(householdParam(r))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.HouseholdMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.members.GetByID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	member := *existing
	member.Name = req.Name
	member.Color = req.Color
	member.AvatarEmoji = req.AvatarEmoji
	member.SortOrder = req.SortOrder

	updated, err := h.members.Update(member)
	if err != nil {
		h.logger.Error("update member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update member")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionUpdated, updated.ID))

	writeJSON(w, http.StatusOK, updated)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if err := h.members.Delete(id); err != nil {
		h.logger.Error("delete member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete member")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionDeleted, id))

	w.WriteHeader(http.StatusNoContent)
}
