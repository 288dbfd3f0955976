package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ewhitfield/tend/internal/model"
	"github.com/ewhitfield/tend/internal/reminder"
	"github.com/ewhitfield/tend/internal/schedule"
	"github.com/ewhitfield/tend/internal/store"
	"github.com/ewhitfield/tend/internal/websocket"
)

type TaskHandler struct {
	tasks     *store.TaskStore
	members   *store.MemberStore
	hub       *websocket.Hub
	rotator   *schedule.Rotator
	reminders *reminder.Sweeper
	logger    *slog.Logger
	now       func() time.Time
}

func NewTaskHandler(ts *store.TaskStore, ms *store.MemberStore, hub *websocket.Hub, rot *schedule.Rotator, sweeper *reminder.Sweeper, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:     ts,
		members:   ms,
		hub:       hub,
		rotator:   rot,
		reminders: sweeper,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *TaskHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type taskRequest struct {
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Frequency        model.Frequency    `json:"frequency"`
	ScheduleMode     model.ScheduleMode `json:"schedule_mode"`
	CustomDays       int                `json:"custom_days"`
	DueDate          *time.Time         `json:"due_date"`
	NextDue          *time.Time         `json:"next_due"`
	EstimatedMinutes int                `json:"estimated_minutes"`
	Rooms            []string           `json:"rooms"`
	AssignedTo       string             `json:"assigned_to"`
	Rotation         model.RotationMode `json:"rotation"`
	RotationOrder    []string           `json:"rotation_order"`
}

// taskView is a task plus its computed due state, as clients render it.
type taskView struct {
	model.Task
	Status            schedule.Status `json:"status"`
	CompletedForToday bool            `json:"completed_for_today"`
}

func (h *TaskHandler) view(t model.Task) taskView {
	now := h.now()
	return taskView{
		Task:              t,
		Status:            schedule.ComputeStatus(t, now),
		CompletedForToday: schedule.CompletedForToday(t, now),
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if req.AssignedTo != "" {
		member, err := h.members.GetByID(req.AssignedTo)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check member")
			return
		}
		if member == nil {
			writeError(w, http.StatusBadRequest, "assigned member not found")
			return
		}
	}

	task := model.Task{
		HouseholdID: householdParam(r),
		Title:       req.Title,
		Description: req.Description,
		Schedule: model.Schedule{
			Frequency:  req.Frequency,
			Mode:       req.ScheduleMode,
			CustomDays: req.CustomDays,
		},
		DueDate:          req.DueDate,
		NextDue:          req.NextDue,
		EstimatedMinutes: req.EstimatedMinutes,
		Rooms:            req.Rooms,
		AssignedTo:       req.AssignedTo,
		Rotation:         req.Rotation,
		RotationOrder:    req.RotationOrder,
	}
	task = schedule.Normalize(task, h.now())

	created, err := h.tasks.Create(task)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionCreated, created.ID))

	writeJSON(w, http.StatusCreated, h.view(*created))
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListByHousehold(householdParam(r))
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, h.view(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetByID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, h.view(*task))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.tasks.GetByID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	task := *existing
	task.Title = req.Title
	task.Description = req.Description
	task.Schedule = model.Schedule{
		Frequency:  req.Frequency,
		Mode:       req.ScheduleMode,
		CustomDays: req.CustomDays,
	}
	task.EstimatedMinutes = req.EstimatedMinutes
	task.Rooms = req.Rooms
	task.AssignedTo = req.AssignedTo
	task.Rotation = req.Rotation
	task.RotationOrder = req.RotationOrder

	// An explicit due date re-anchors the schedule; otherwise progress is
	// left alone.
	if req.DueDate != nil || req.NextDue != nil {
		task.DueDate = req.DueDate
		task.NextDue = req.NextDue
		task.Progress.DueAt = time.Time{}
	}
	task = schedule.Normalize(task, h.now())

	updated, err := h.tasks.Update(task)
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionUpdated, updated.ID))

	writeJSON(w, http.StatusOK, h.view(*updated))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		h.logger.Error("delete task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.cancelReminders(*existing)
	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionDeleted, id))

	w.WriteHeader(http.StatusNoContent)
}

type completeRequest struct {
	CompletedBy   string   `json:"completed_by"`
	Note          string   `json:"note"`
	Rooms         []string `json:"rooms"`
	ActualMinutes int      `json:"actual_minutes"`
}

// completionResponse pairs the updated task with the ledger record that
// the completion appended.
type completionResponse struct {
	Task   taskView               `json:"task"`
	Record model.CompletionRecord `json:"record"`
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	existing, err := h.tasks.GetByID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req completeRequest
	json.NewDecoder(r.Body).Decode(&req)

	memberIDs, err := h.members.MemberIDs(existing.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	updated, record := schedule.ApplyCompletion(*existing, schedule.CompletionInput{
		By:            req.CompletedBy,
		Note:          req.Note,
		Rooms:         req.Rooms,
		ActualMinutes: req.ActualMinutes,
	}, h.now(), h.rotator, memberIDs)

	saved, err := h.tasks.Update(updated)
	if err != nil {
		h.logger.Error("save completed task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete task")
		return
	}
	rec, err := h.tasks.AppendCompletion(record)
	if err != nil {
		h.logger.Error("append completion", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record completion")
		return
	}

	h.cancelReminders(*saved)
	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionCompleted, saved.ID))

	writeJSON(w, http.StatusOK, completionResponse{Task: h.view(*saved), Record: *rec})
}

func (h *TaskHandler) Skip(w http.ResponseWriter, r *http.Request) {
	existing, err := h.tasks.GetByID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req completeRequest
	json.NewDecoder(r.Body).Decode(&req)

	updated, record, err := schedule.ApplySkip(*existing, req.CompletedBy, h.now())
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidOperation) {
			writeError(w, http.StatusBadRequest, "one-time tasks cannot be skipped")
			return
		}
		h.logger.Error("skip task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to skip task")
		return
	}

	saved, err := h.tasks.Update(updated)
	if err != nil {
		h.logger.Error("save skipped task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to skip task")
		return
	}
	rec, err := h.tasks.AppendCompletion(record)
	if err != nil {
		h.logger.Error("append skip record", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record skip")
		return
	}

	h.cancelReminders(*saved)
	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionSkipped, saved.ID))

	writeJSON(w, http.StatusOK, completionResponse{Task: h.view(*saved), Record: *rec})
}

// History returns the task's ledger, newest first.
func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	records, err := h.tasks.ListCompletionsByTask(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list completions")
		return
	}
	if records == nil {
		records = []model.CompletionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// cancelReminders drops pending reminder timers after a task's due date
// moved or the task went away. The next sweep re-arms as needed.
func (h *TaskHandler) cancelReminders(t model.Task) {
	if h.reminders == nil {
		return
	}
	memberIDs, err := h.members.MemberIDs(t.HouseholdID)
	if err != nil {
		h.logger.Warn("list members for reminder cancel", "error", err)
		return
	}
	h.reminders.CancelTask(t.ID, memberIDs)
}
