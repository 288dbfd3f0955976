package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ewhitfield/tend/internal/model"
	"github.com/ewhitfield/tend/internal/recurrence"
	"github.com/ewhitfield/tend/internal/store"
	"github.com/ewhitfield/tend/internal/websocket"
)

type EventHandler struct {
	events *store.EventStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewEventHandler(es *store.EventStore, hub *websocket.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: es, hub: hub, logger: logger}
}

func (h *EventHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type eventRequest struct {
	Title         string                  `json:"title"`
	Description   string                  `json:"description"`
	Category      string                  `json:"category"`
	Location      string                  `json:"location"`
	Date          time.Time               `json:"date"`
	EndDate       *time.Time              `json:"end_date"`
	StartTime     string                  `json:"start_time"`
	EndTime       string                  `json:"end_time"`
	AllDay        bool                    `json:"all_day"`
	Recurrence    model.RecurrencePattern `json:"recurrence"`
	RecurrenceEnd *time.Time              `json:"recurrence_end"`
	Attendees     []string                `json:"attendees"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	created, err := h.events.Create(model.CalendarEvent{
		HouseholdID:   householdParam(r),
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Location:      req.Location,
		Date:          req.Date,
		EndDate:       req.EndDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		AllDay:        req.AllDay,
		Recurrence:    req.Recurrence,
		RecurrenceEnd: req.RecurrenceEnd,
		Attendees:     req.Attendees,
	})
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionCreated, created.ID))

	writeJSON(w, http.StatusCreated, created)
}

// List serves the calendar. With start and end parameters it returns the
// expanded instances inside the window, projections included; without them
// it returns the stored events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := householdParam(r)

	start, okStart := parseDateParam(r, "start")
	end, okEnd := parseDateParam(r, "end")
	if !okStart || !okEnd {
		events, err := h.events.ListByHousehold(householdID)
		if err != nil {
			h.logger.Error("list events", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list events")
			return
		}
		if events == nil {
			events = []model.CalendarEvent{}
		}
		writeJSON(w, http.StatusOK, events)
		return
	}

	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not precede start")
		return
	}

	candidates, err := h.events.ListCandidatesInWindow(householdID, start, end)
	if err != nil {
		h.logger.Error("list events in window", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	instances := []model.EventInstance{}
	for _, ev := range candidates {
		for _, inst := range recurrence.Expand(ev, start, end) {
			if instanceInWindow(inst, start, end) {
				instances = append(instances, inst)
			}
		}
	}
	writeJSON(w, http.StatusOK, instances)
}

// instanceInWindow keeps instances that start inside the window or whose
// multi-day span reaches into it. Expand already bounds projections, but
// the base occurrence may fall outside the asked-for range.
func instanceInWindow(inst model.EventInstance, start, end time.Time) bool {
	if inst.Date.After(end) {
		return false
	}
	if !inst.Date.Before(start) {
		return true
	}
	return inst.EndDate != nil && !inst.EndDate.Before(start)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetByID(recurrence.SeriesID(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Update edits an event. An instance id resolves to its series, so editing
// one projected occurrence edits the whole series.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := recurrence.SeriesID(r.PathValue("id"))

	existing, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	event := *existing
	event.Title = req.Title
	event.Description = req.Description
	event.Category = req.Category
	event.Location = req.Location
	event.Date = req.Date
	event.EndDate = req.EndDate
	event.StartTime = req.StartTime
	event.EndTime = req.EndTime
	event.AllDay = req.AllDay
	event.Recurrence = req.Recurrence
	event.RecurrenceEnd = req.RecurrenceEnd
	event.Attendees = req.Attendees

	updated, err := h.events.Update(event)
	if err != nil {
		h.logger.Error("update event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionUpdated, updated.ID))

	writeJSON(w, http.StatusOK, updated)
}

// Delete removes an event. Deleting through an instance id removes the
// series and every projection with it.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := recurrence.SeriesID(r.PathValue("id"))

	existing, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if err := h.events.Delete(id); err != nil {
		h.logger.Error("delete event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionDeleted, id))

	w.WriteHeader(http.StatusNoContent)
}
