package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"focus-planner/internal/model"
	"focus-planner/internal/notify"
	"focus-planner/internal/oracle"
	"focus-planner/internal/repository"
)

func newTestRepos(t *testing.T) (*repository.TaskRepository, *repository.NudgeRepository) {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	return repository.NewTaskRepository(db), repository.NewNudgeRepository(db)
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC) // a Wednesday
}

func fixedClock() func() time.Time {
	return func() time.Time { return fixedNow() }
}

func createTask(t *testing.T, repo *repository.TaskRepository, task *model.Task) *model.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = model.StatusActive
	}
	if task.Recurrence == "" {
		task.Recurrence = model.RecurrenceNone
	}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

// stubOracle returns canned answers or errors, and records what it was asked.
type stubOracle struct {
	mu         sync.Mutex
	selection  *oracle.FocusSelection
	selectErr  error
	summary    string
	summaryErr error

	selectCalls    int
	lastContext    oracle.TimeContext
	lastCandidates []oracle.TaskSummary
}

func (s *stubOracle) SelectFocusTasks(_ context.Context, candidates []oracle.TaskSummary, tc oracle.TimeContext) (*oracle.FocusSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectCalls++
	s.lastContext = tc
	s.lastCandidates = candidates
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	return s.selection, nil
}

func (s *stubOracle) SummarizeStatus(_ context.Context, _ []oracle.StatusItem, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summaryErr != nil {
		return "", s.summaryErr
	}
	return s.summary, nil
}

// recordSink captures notifications for assertions.
type recordSink struct {
	mu    sync.Mutex
	shown []notify.Notification
}

func (s *recordSink) Show(_ context.Context, n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n)
}

func (s *recordSink) notifications() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.shown...)
}
