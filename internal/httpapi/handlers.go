package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"focus-planner/internal/model"
	"focus-planner/internal/service"
)

type taskResponse struct {
	ID                 string     `json:"id"`
	Content            string     `json:"content"`
	Notes              string     `json:"notes,omitempty"`
	Category           string     `json:"category,omitempty"`
	Priority           string     `json:"priority,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	DueTime            string     `json:"due_time,omitempty"`
	Recurrence         string     `json:"recurrence"`
	RecurrenceInterval int        `json:"recurrence_interval,omitempty"`
	RecurrenceDays     string     `json:"recurrence_days,omitempty"`
	RecurrenceEndDate  *time.Time `json:"recurrence_end_date,omitempty"`
	SeriesID           string     `json:"series_id,omitempty"`
	EstimatedDuration  int        `json:"estimated_duration,omitempty"`
	Difficulty         string     `json:"difficulty,omitempty"`
	Status             string     `json:"status"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	FocusDate          *string    `json:"focus_date,omitempty"`
	FocusOrder         *int       `json:"focus_order,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toTaskResponse(t model.Task) taskResponse {
	return taskResponse{
		ID:                 t.ID,
		Content:            t.Content,
		Notes:              t.Notes,
		Category:           t.Category,
		Priority:           t.Priority,
		DueDate:            t.DueDate,
		DueTime:            t.DueTime,
		Recurrence:         t.Recurrence,
		RecurrenceInterval: t.RecurrenceInterval,
		RecurrenceDays:     t.RecurrenceDays,
		RecurrenceEndDate:  t.RecurrenceEndDate,
		SeriesID:           t.SeriesID,
		EstimatedDuration:  t.EstimatedDuration,
		Difficulty:         t.Difficulty,
		Status:             t.Status,
		CompletedAt:        t.CompletedAt,
		FocusDate:          t.FocusDate,
		FocusOrder:         t.FocusOrder,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

type focusResponse struct {
	TaskIDs     []string  `json:"task_ids"`
	Reasoning   string    `json:"reasoning"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (s *Server) getFocus(w http.ResponseWriter, r *http.Request) {
	queue, err := s.planner.GetCached(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if queue == nil {
		queue, err = s.planner.GenerateAndCache(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, focusResponse{
		TaskIDs:     queue.TaskIDs,
		Reasoning:   queue.Reasoning,
		GeneratedAt: queue.GeneratedAt,
	})
}

func (s *Server) regenerateFocus(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.Regenerate(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	queue, err := s.planner.GetCached(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := focusResponse{GeneratedAt: s.now()}
	if queue != nil {
		resp = focusResponse{TaskIDs: queue.TaskIDs, Reasoning: queue.Reasoning, GeneratedAt: queue.GeneratedAt}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []model.Task
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		tasks, err = s.tasks.ListByStatus(r.Context(), status)
	} else {
		tasks, err = s.tasks.ListAll(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type createTaskRequest struct {
	Content            string     `json:"content"`
	Notes              string     `json:"notes"`
	Category           string     `json:"category"`
	Priority           string     `json:"priority"`
	DueDate            *time.Time `json:"due_date"`
	DueTime            string     `json:"due_time"`
	Recurrence         string     `json:"recurrence"`
	RecurrenceInterval int        `json:"recurrence_interval"`
	RecurrenceDays     string     `json:"recurrence_days"`
	RecurrenceEndDate  *time.Time `json:"recurrence_end_date"`
	EstimatedDuration  int        `json:"estimated_duration"`
	Difficulty         string     `json:"difficulty"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	task, err := s.tasks.CreateTask(r.Context(), service.TaskInput{
		Content:            req.Content,
		Notes:              req.Notes,
		Category:           req.Category,
		Priority:           req.Priority,
		DueDate:            req.DueDate,
		DueTime:            req.DueTime,
		Recurrence:         req.Recurrence,
		RecurrenceInterval: req.RecurrenceInterval,
		RecurrenceDays:     model.ParseWeekdays(req.RecurrenceDays),
		RecurrenceEndDate:  req.RecurrenceEndDate,
		EstimatedDuration:  req.EstimatedDuration,
		Difficulty:         req.Difficulty,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(*task))
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.CompleteTask(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

func (s *Server) reopenTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.ReopenTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.tasks.DeleteTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nudgeResponse struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	RelatedTaskIDs []string  `json:"related_task_ids,omitempty"`
	Dismissed      bool      `json:"dismissed"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Server) listNudges(w http.ResponseWriter, r *http.Request) {
	undismissed := r.URL.Query().Get("undismissed") == "1"
	nudges, err := s.nudgeRepo.List(r.Context(), undismissed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]nudgeResponse, 0, len(nudges))
	for _, n := range nudges {
		out = append(out, nudgeResponse{
			ID:             n.ID,
			Type:           n.Type,
			Message:        n.Message,
			RelatedTaskIDs: n.RelatedIDs(),
			Dismissed:      n.Dismissed,
			CreatedAt:      n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) dismissNudge(w http.ResponseWriter, r *http.Request) {
	dismissed, err := s.nudgeRepo.Dismiss(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !dismissed {
		writeError(w, http.StatusNotFound, "nudge not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
