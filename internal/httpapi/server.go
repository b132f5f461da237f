// Package httpapi exposes the planner over a small JSON API.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"focus-planner/internal/repository"
	"focus-planner/internal/service"
)

// Server wires the planner's services into HTTP handlers.
type Server struct {
	tasks     *service.TaskService
	planner   *service.PlannerService
	nudgeRepo *repository.NudgeRepository
	now       func() time.Time
}

func NewServer(tasks *service.TaskService, planner *service.PlannerService, nudgeRepo *repository.NudgeRepository, nowFn func() time.Time) *Server {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Server{tasks: tasks, planner: planner, nudgeRepo: nudgeRepo, now: nowFn}
}

// Handler builds the route table wrapped with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/focus", s.getFocus)
	mux.HandleFunc("POST /api/focus/regenerate", s.regenerateFocus)

	mux.HandleFunc("GET /api/tasks", s.listTasks)
	mux.HandleFunc("POST /api/tasks", s.createTask)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.completeTask)
	mux.HandleFunc("POST /api/tasks/{id}/reopen", s.reopenTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.deleteTask)

	mux.HandleFunc("GET /api/nudges", s.listNudges)
	mux.HandleFunc("POST /api/nudges/{id}/dismiss", s.dismissNudge)

	return cors.Default().Handler(mux)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
