package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focus-planner/internal/config"
	"focus-planner/internal/model"
	"focus-planner/internal/oracle"
	"focus-planner/internal/repository"
)

func newCheckInFixture(t *testing.T, summarizer *stubOracle) (*CheckInService, *fixtureDeps) {
	t.Helper()
	taskRepo, nudgeRepo := newTestRepos(t)
	ranker := &stubOracle{selectErr: fmt.Errorf("unconfigured")}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())
	sink := &recordSink{}
	sched := NewSchedulerService(time.UTC)

	var summary oracle.Oracle
	if summarizer != nil {
		summary = summarizer
	}
	checkin := NewCheckInService(taskRepo, nudgeRepo, planner, summary, sink, sched, fixedClock())
	return checkin, &fixtureDeps{taskRepo: taskRepo, nudgeRepo: nudgeRepo, planner: planner, sink: sink}
}

type fixtureDeps struct {
	taskRepo  *repository.TaskRepository
	nudgeRepo *repository.NudgeRepository
	planner   *PlannerService
	sink      *recordSink
}

func TestCheckIn_PersistsNudgeAndRegenerates(t *testing.T) {
	summarizer := &stubOracle{summary: "Two tasks left; knock out the overdue one first."}
	checkin, deps := newCheckInFixture(t, summarizer)
	ctx := context.Background()

	overdueAt := fixedNow().Add(-48 * time.Hour)
	overdue := createTask(t, deps.taskRepo, &model.Task{ID: "t-over", Content: "late thing", DueDate: &overdueAt})
	createTask(t, deps.taskRepo, &model.Task{ID: "t-ok", Content: "fine thing"})

	require.NoError(t, checkin.RunCheckIn(ctx, model.NudgeMorningCheckIn, fixedNow()))

	nudges, err := deps.nudgeRepo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, nudges, 1)
	assert.Equal(t, model.NudgeMorningCheckIn, nudges[0].Type)
	assert.Equal(t, "Two tasks left; knock out the overdue one first.", nudges[0].Message)
	assert.Equal(t, []string{overdue.ID}, nudges[0].RelatedIDs())

	shown := deps.sink.notifications()
	require.Len(t, shown, 1)
	assert.Equal(t, "Morning check-in", shown[0].Title)

	// The check-in regenerated today's queue.
	queue, err := deps.planner.GetCached(ctx)
	require.NoError(t, err)
	require.NotNil(t, queue)
	assert.NotEmpty(t, queue.TaskIDs)
}

func TestCheckIn_CannedMessageWhenOracleFails(t *testing.T) {
	summarizer := &stubOracle{summaryErr: fmt.Errorf("timeout")}
	checkin, deps := newCheckInFixture(t, summarizer)
	ctx := context.Background()

	createTask(t, deps.taskRepo, &model.Task{ID: "t-1", Content: "a task"})

	require.NoError(t, checkin.RunCheckIn(ctx, model.NudgeMiddayCheckIn, fixedNow()))

	nudges, err := deps.nudgeRepo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, nudges, 1)
	assert.Equal(t, "Midday check-in. You have 1 open tasks. Pick one and start.", nudges[0].Message)
}

func TestCheckIn_CannedMessageWhenUnconfigured(t *testing.T) {
	checkin, deps := newCheckInFixture(t, nil)
	ctx := context.Background()

	overdueAt := fixedNow().Add(-time.Hour)
	createTask(t, deps.taskRepo, &model.Task{ID: "t-1", Content: "late", DueDate: &overdueAt})
	createTask(t, deps.taskRepo, &model.Task{ID: "t-2", Content: "open"})

	require.NoError(t, checkin.RunCheckIn(ctx, model.NudgeMorningCheckIn, fixedNow()))

	nudges, err := deps.nudgeRepo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, nudges, 1)
	assert.Equal(t, "Good morning! You have 2 open tasks, 1 overdue. Pick one and start.", nudges[0].Message)
}

func TestOverdueSweep_AggregatesIntoOneNudge(t *testing.T) {
	checkin, deps := newCheckInFixture(t, nil)
	ctx := context.Background()

	past := fixedNow().Add(-2 * time.Hour)
	createTask(t, deps.taskRepo, &model.Task{ID: "t-1", Content: "late one", DueDate: &past})
	createTask(t, deps.taskRepo, &model.Task{ID: "t-2", Content: "late two", DueDate: &past})
	future := fixedNow().Add(2 * time.Hour)
	createTask(t, deps.taskRepo, &model.Task{ID: "t-3", Content: "on time", DueDate: &future})

	require.NoError(t, checkin.RunOverdueSweep(ctx, fixedNow()))

	nudges, err := deps.nudgeRepo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, nudges, 1, "one aggregate nudge, not one per task")
	assert.Equal(t, model.NudgeOverdueReminder, nudges[0].Type)
	assert.ElementsMatch(t, []string{"t-1", "t-2"}, nudges[0].RelatedIDs())

	require.Len(t, deps.sink.notifications(), 1)
}

func TestOverdueSweep_NoOverdueMeansNoNudge(t *testing.T) {
	checkin, deps := newCheckInFixture(t, nil)
	ctx := context.Background()

	future := fixedNow().Add(time.Hour)
	createTask(t, deps.taskRepo, &model.Task{ID: "t-1", Content: "fine", DueDate: &future})

	require.NoError(t, checkin.RunOverdueSweep(ctx, fixedNow()))

	nudges, err := deps.nudgeRepo.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, nudges)
	assert.Empty(t, deps.sink.notifications())
}

func TestDueTimeSweep_NotifiesMatchingMinuteOnly(t *testing.T) {
	checkin, deps := newCheckInFixture(t, nil)
	ctx := context.Background()

	now := fixedNow() // 09:00 UTC
	todayDue := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)

	hit := createTask(t, deps.taskRepo, &model.Task{ID: "t-hit", Content: "meeting prep", DueDate: &todayDue, DueTime: "09:00"})
	createTask(t, deps.taskRepo, &model.Task{ID: "t-later", Content: "later", DueDate: &todayDue, DueTime: "09:30"})
	otherDay := todayDue.AddDate(0, 0, 1)
	createTask(t, deps.taskRepo, &model.Task{ID: "t-tmrw", Content: "tomorrow", DueDate: &otherDay, DueTime: "09:00"})
	createTask(t, deps.taskRepo, &model.Task{ID: "t-nodate", Content: "time only", DueTime: "09:00"})

	require.NoError(t, checkin.RunDueTimeSweep(ctx, now))

	shown := deps.sink.notifications()
	require.Len(t, shown, 1)
	assert.Equal(t, []string{hit.ID}, shown[0].RelatedTaskIDs)

	got, err := deps.taskRepo.FindByID(ctx, hit.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastNotifiedAt)
	assert.True(t, got.LastNotifiedAt.Equal(now))
}

func TestDueTimeSweep_DebouncesWithinSixtySeconds(t *testing.T) {
	checkin, deps := newCheckInFixture(t, nil)
	ctx := context.Background()

	now := fixedNow()
	todayDue := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	createTask(t, deps.taskRepo, &model.Task{ID: "t-hit", Content: "meeting prep", DueDate: &todayDue, DueTime: "09:00"})

	require.NoError(t, checkin.RunDueTimeSweep(ctx, now))
	// Re-run within the debounce window, as after a partially completed sweep.
	require.NoError(t, checkin.RunDueTimeSweep(ctx, now.Add(30*time.Second)))
	require.Len(t, deps.sink.notifications(), 1)

	// Once the guard ages past the window the notification fires again.
	require.NoError(t, deps.taskRepo.SetLastNotified(ctx, "t-hit", now.Add(-2*time.Minute)))
	require.NoError(t, checkin.RunDueTimeSweep(ctx, now.Add(45*time.Second)))
	assert.Len(t, deps.sink.notifications(), 2)
}

func TestReschedule_DisabledSchedulesNothing(t *testing.T) {
	checkin, _ := newCheckInFixture(t, nil)

	cfg := config.NotificationConfig{
		Enabled:     false,
		MorningTime: "09:00",
		MiddayTime:  "13:00",
	}
	require.NoError(t, checkin.Reschedule(cfg))
	assert.Empty(t, checkin.entries)
}

func TestReschedule_EnabledThenDisabledTearsDown(t *testing.T) {
	checkin, _ := newCheckInFixture(t, nil)

	enabled := config.NotificationConfig{
		Enabled:     true,
		MorningTime: "09:00",
		MiddayTime:  "13:00",
	}
	require.NoError(t, checkin.Reschedule(enabled))
	assert.Len(t, checkin.entries, 4)

	disabled := enabled
	disabled.Enabled = false
	require.NoError(t, checkin.Reschedule(disabled))
	assert.Empty(t, checkin.entries)
}

func TestReschedule_InvalidTimeRejected(t *testing.T) {
	checkin, _ := newCheckInFixture(t, nil)

	cfg := config.NotificationConfig{
		Enabled:     true,
		MorningTime: "25:00",
		MiddayTime:  "13:00",
	}
	assert.Error(t, checkin.Reschedule(cfg))
}
