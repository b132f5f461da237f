package service

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"focus-planner/internal/model"
	"focus-planner/internal/oracle"
	"focus-planner/internal/repository"
)

const (
	cachedReasoning   = "Cached from earlier today"
	fallbackReasoning = "planning failed, showing top items"
)

// FocusQueue is today's plan: an ordered list of task ids, the rationale
// behind it, and when it was produced. It is derived state; the durable form
// lives entirely in the focus_date/focus_order columns on tasks.
type FocusQueue struct {
	TaskIDs     []string
	Reasoning   string
	GeneratedAt time.Time
}

// PlannerService decides when to (re)compute the ranked "what to work on
// today" list, persists it onto tasks, and serves it to callers.
type PlannerService struct {
	taskRepo *repository.TaskRepository
	oracle   oracle.Oracle
	focusCap int
	now      func() time.Time

	// genMu serializes regeneration so concurrent writers cannot interleave
	// the clear-then-rewrite sequence for today's plan.
	genMu sync.Mutex

	obsMu     sync.Mutex
	observers []PlanObserver
}

// PlanObserver receives the fresh queue after every Regenerate.
type PlanObserver func(FocusQueue)

// NewPlannerService builds a planner. A nil ranker means every generation
// takes the local fallback path. nowFn defaults to time.Now.
func NewPlannerService(taskRepo *repository.TaskRepository, ranker oracle.Oracle, focusCap int, nowFn func() time.Time) *PlannerService {
	if focusCap <= 0 {
		focusCap = 5
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &PlannerService{
		taskRepo: taskRepo,
		oracle:   ranker,
		focusCap: focusCap,
		now:      nowFn,
	}
}

// Subscribe registers an observer invoked after every Regenerate.
func (s *PlannerService) Subscribe(fn PlanObserver) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

// GetCached returns today's plan if any task carries today's focus date, or
// nil when there is no plan. Assignments from prior days are stale by
// definition and never surface here.
func (s *PlannerService) GetCached(ctx context.Context) (*FocusQueue, error) {
	now := s.now()
	today := now.Format(model.FocusDateFormat)

	tasks, err := s.taskRepo.GetByFocusDate(ctx, today)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	// focus_order ascending, missing orders last, stable tie-break by id.
	sort.SliceStable(tasks, func(i, j int) bool {
		oi, oj := tasks[i].FocusOrder, tasks[j].FocusOrder
		switch {
		case oi == nil && oj == nil:
			return tasks[i].ID < tasks[j].ID
		case oi == nil:
			return false
		case oj == nil:
			return true
		case *oi != *oj:
			return *oi < *oj
		default:
			return tasks[i].ID < tasks[j].ID
		}
	})

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return &FocusQueue{TaskIDs: ids, Reasoning: cachedReasoning, GeneratedAt: now}, nil
}

// GenerateAndCache computes a fresh plan for today and persists it. An
// oracle failure degrades to a deterministic local fallback; only store
// errors propagate.
func (s *PlannerService) GenerateAndCache(ctx context.Context) (*FocusQueue, error) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generateLocked(ctx)
}

func (s *PlannerService) generateLocked(ctx context.Context) (*FocusQueue, error) {
	now := s.now()
	today := now.Format(model.FocusDateFormat)

	active, err := s.taskRepo.GetByStatus(ctx, model.StatusActive)
	if err != nil {
		return nil, err
	}

	ids, reasoning := s.selectTasks(ctx, active, now)
	ids = dedupeIDs(ids)

	// Drop any selection from an earlier generation the same day, then write
	// the new ordering. A crash in between leaves an empty plan for today,
	// which GetCached reports as no plan and the next access regenerates.
	if err := s.taskRepo.ClearFocusForDate(ctx, today); err != nil {
		return nil, err
	}
	for i, id := range ids {
		if err := s.taskRepo.SetFocus(ctx, id, today, i); err != nil {
			return nil, err
		}
	}

	return &FocusQueue{TaskIDs: ids, Reasoning: reasoning, GeneratedAt: now}, nil
}

func (s *PlannerService) selectTasks(ctx context.Context, active []model.Task, now time.Time) ([]string, string) {
	if len(active) == 0 {
		return nil, "no active tasks"
	}

	if s.oracle != nil {
		candidates := make([]oracle.TaskSummary, 0, len(active))
		for _, t := range active {
			candidates = append(candidates, oracle.TaskSummary{
				ID:                t.ID,
				Content:           t.Content,
				Category:          t.Category,
				Priority:          t.Priority,
				DueDate:           t.DueDate,
				DueTime:           t.DueTime,
				Difficulty:        t.Difficulty,
				EstimatedDuration: t.EstimatedDuration,
				IsOverdue:         t.IsOverdue(now),
			})
		}
		tc := oracle.TimeContext{
			Now:     now,
			Weekday: now.Weekday().String(),
			Date:    now.Format(model.FocusDateFormat),
		}
		selection, err := s.oracle.SelectFocusTasks(ctx, candidates, tc)
		if err == nil && selection != nil && len(selection.TaskIDs) > 0 {
			return selection.TaskIDs, selection.Reasoning
		}
		if err != nil {
			log.Printf("planner: oracle selection failed, using fallback: %v", err)
		}
	}

	return s.fallbackSelection(active), fallbackReasoning
}

// dedupeIDs keeps the first occurrence of each id. A repeated id in a
// selection would otherwise be written twice and break the contiguous
// focus_order ranking from 0.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// fallbackSelection picks the first focusCap active tasks in id order. It is
// deterministic so retries converge on the same plan.
func (s *PlannerService) fallbackSelection(active []model.Task) []string {
	ids := make([]string, 0, len(active))
	for _, t := range active {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	if len(ids) > s.focusCap {
		ids = ids[:s.focusCap]
	}
	return ids
}

// InitializeOnStartup serves the cached plan when one exists and generates
// one otherwise. Store errors propagate; startup cannot plan without
// persistence.
func (s *PlannerService) InitializeOnStartup(ctx context.Context) (*FocusQueue, error) {
	queue, err := s.GetCached(ctx)
	if err != nil {
		return nil, err
	}
	if queue != nil {
		return queue, nil
	}
	return s.GenerateAndCache(ctx)
}

// Regenerate discards today's selection, computes a fresh plan, and pushes
// it to observers.
func (s *PlannerService) Regenerate(ctx context.Context) error {
	queue, err := s.GenerateAndCache(ctx)
	if err != nil {
		return err
	}

	s.obsMu.Lock()
	observers := append([]PlanObserver(nil), s.observers...)
	s.obsMu.Unlock()
	for _, fn := range observers {
		fn(*queue)
	}
	return nil
}
