package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/ewhitfield/tend/internal/handler"
	"github.com/ewhitfield/tend/internal/middleware"
	"github.com/ewhitfield/tend/internal/push"
	"github.com/ewhitfield/tend/internal/reminder"
	"github.com/ewhitfield/tend/internal/schedule"
	"github.com/ewhitfield/tend/internal/store"
	ws "github.com/ewhitfield/tend/internal/websocket"
)

type Server struct {
	db      *sql.DB
	hub     *ws.Hub
	taskH   *handler.TaskHandler
	eventH  *handler.EventHandler
	memberH *handler.MemberHandler
	pushH   *handler.PushHandler
	sweeper *reminder.Sweeper
	logger  *slog.Logger
}

func New(db *sql.DB, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	taskStore := store.NewTaskStore(db)
	eventStore := store.NewEventStore(db)
	memberStore := store.NewMemberStore(db)
	pushStore := store.NewPushStore(db)

	rotator := schedule.NewRotator(rand.NewSource(time.Now().UnixNano()))

	var pushSvc *push.Service
	var sweeper *reminder.Sweeper
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg)
		sweeper = reminder.NewSweeper(taskStore, eventStore, pushStore, pushSvc, logger)
		pushH = handler.NewPushHandler(pushStore, pushSvc, hub, logger.With("component", "push"))
	}

	return &Server{
		db:      db,
		hub:     hub,
		taskH:   handler.NewTaskHandler(taskStore, memberStore, hub, rotator, sweeper, logger.With("component", "task")),
		eventH:  handler.NewEventHandler(eventStore, hub, logger.With("component", "calendar")),
		memberH: handler.NewMemberHandler(memberStore, hub, logger.With("component", "member")),
		pushH:   pushH,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Sweeper returns the reminder sweeper, nil when push is not configured.
func (s *Server) Sweeper() *reminder.Sweeper {
	return s.sweeper
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Task API routes
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/skip", s.taskH.Skip)
	mux.HandleFunc("GET /api/tasks/{id}/completions", s.taskH.History)

	// Calendar event API routes
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	// Household member API routes
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/preferences", s.pushH.GetPreferences)
		mux.HandleFunc("PUT /api/push/preferences", s.pushH.UpdatePreferences)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
