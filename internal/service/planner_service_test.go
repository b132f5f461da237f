package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focus-planner/internal/model"
	"focus-planner/internal/oracle"
)

func TestPlanner_GetCached_NoPlan(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	planner := NewPlannerService(taskRepo, nil, 5, fixedClock())

	createTask(t, taskRepo, &model.Task{ID: "t-1", Content: "something"})

	queue, err := planner.GetCached(context.Background())
	require.NoError(t, err)
	assert.Nil(t, queue)
}

func TestPlanner_GenerateAndCache_RoundTrip(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		createTask(t, taskRepo, &model.Task{ID: fmt.Sprintf("t-%d", i), Content: fmt.Sprintf("task %d", i)})
	}

	ranker := &stubOracle{selection: &oracle.FocusSelection{
		TaskIDs:   []string{"t-2", "t-0", "t-3"},
		Reasoning: "overdue first, then momentum",
	}}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())

	generated, err := planner.GenerateAndCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t-2", "t-0", "t-3"}, generated.TaskIDs)
	assert.Equal(t, "overdue first, then momentum", generated.Reasoning)

	// The persisted ordering round-trips through the cache.
	cached, err := planner.GetCached(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, generated.TaskIDs, cached.TaskIDs)
	assert.Equal(t, "Cached from earlier today", cached.Reasoning)

	// focus_order forms a contiguous ranking from 0.
	today := fixedNow().Format(model.FocusDateFormat)
	for i, id := range generated.TaskIDs {
		task, err := taskRepo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, task.FocusDate)
		assert.Equal(t, today, *task.FocusDate)
		require.NotNil(t, task.FocusOrder)
		assert.Equal(t, i, *task.FocusOrder)
	}

	// Unselected tasks carry no focus assignment.
	unselected, err := taskRepo.FindByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, unselected.FocusDate)
}

func TestPlanner_GenerateAndCache_RepeatedIDsKeepFirstOccurrence(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	createTask(t, taskRepo, &model.Task{ID: "t-1", Content: "one"})
	createTask(t, taskRepo, &model.Task{ID: "t-2", Content: "two"})

	ranker := &stubOracle{selection: &oracle.FocusSelection{
		TaskIDs:   []string{"t-1", "t-1", "t-2"},
		Reasoning: "first things first",
	}}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())

	generated, err := planner.GenerateAndCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t-1", "t-2"}, generated.TaskIDs)

	// Each task is written once and the ranking stays contiguous from 0.
	for i, id := range generated.TaskIDs {
		task, err := taskRepo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, task.FocusOrder)
		assert.Equal(t, i, *task.FocusOrder)
	}
}

func TestPlanner_GenerateAndCache_ReplacesSameDaySelection(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	createTask(t, taskRepo, &model.Task{ID: "t-1", Content: "one"})
	createTask(t, taskRepo, &model.Task{ID: "t-2", Content: "two"})

	ranker := &stubOracle{selection: &oracle.FocusSelection{TaskIDs: []string{"t-1"}, Reasoning: "first"}}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())

	_, err := planner.GenerateAndCache(ctx)
	require.NoError(t, err)

	ranker.mu.Lock()
	ranker.selection = &oracle.FocusSelection{TaskIDs: []string{"t-2"}, Reasoning: "second"}
	ranker.mu.Unlock()

	_, err = planner.GenerateAndCache(ctx)
	require.NoError(t, err)

	cached, err := planner.GetCached(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, []string{"t-2"}, cached.TaskIDs)

	// The stale selection was cleared, not left at a dangling order.
	t1, err := taskRepo.FindByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, t1.FocusDate)
}

func TestPlanner_DateRollover_StalePlanIgnored(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	task := createTask(t, taskRepo, &model.Task{ID: "t-1", Content: "yesterday's pick"})
	yesterday := fixedNow().AddDate(0, 0, -1).Format(model.FocusDateFormat)
	require.NoError(t, taskRepo.SetFocus(ctx, task.ID, yesterday, 0))

	planner := NewPlannerService(taskRepo, nil, 5, fixedClock())
	queue, err := planner.GetCached(ctx)
	require.NoError(t, err)
	assert.Nil(t, queue, "prior-day focus dates must not surface as today's plan")
}

func TestPlanner_OracleFailure_FallsBackToTopItems(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		createTask(t, taskRepo, &model.Task{ID: fmt.Sprintf("t-%d", i), Content: fmt.Sprintf("task %d", i)})
	}

	ranker := &stubOracle{selectErr: fmt.Errorf("connection refused")}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())

	queue, err := planner.GenerateAndCache(ctx)
	require.NoError(t, err, "oracle failure must not surface as the queue's failure")
	assert.Equal(t, []string{"t-0", "t-1", "t-2", "t-3", "t-4"}, queue.TaskIDs)
	assert.Equal(t, "planning failed, showing top items", queue.Reasoning)

	// The fallback writes through the same persistence path.
	cached, err := planner.GetCached(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, queue.TaskIDs, cached.TaskIDs)
}

func TestPlanner_InitializeOnStartup_ServesCacheFirst(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	task := createTask(t, taskRepo, &model.Task{ID: "t-1", Content: "already planned"})
	today := fixedNow().Format(model.FocusDateFormat)
	require.NoError(t, taskRepo.SetFocus(ctx, task.ID, today, 0))

	ranker := &stubOracle{selection: &oracle.FocusSelection{TaskIDs: []string{"t-1"}}}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())

	queue, err := planner.InitializeOnStartup(ctx)
	require.NoError(t, err)
	require.NotNil(t, queue)
	assert.Equal(t, []string{"t-1"}, queue.TaskIDs)
	assert.Zero(t, ranker.selectCalls, "a cached plan must not trigger regeneration")
}

func TestPlanner_InitializeOnStartup_UnreachableOracle(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		createTask(t, taskRepo, &model.Task{ID: fmt.Sprintf("t-%d", i), Content: fmt.Sprintf("task %d", i)})
	}

	ranker := &stubOracle{selectErr: fmt.Errorf("timeout")}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())

	queue, err := planner.InitializeOnStartup(ctx)
	require.NoError(t, err)
	require.NotNil(t, queue)
	require.Len(t, queue.TaskIDs, 5)

	today := fixedNow().Format(model.FocusDateFormat)
	for i, id := range queue.TaskIDs {
		task, err := taskRepo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, task.FocusDate)
		assert.Equal(t, today, *task.FocusDate)
		assert.Equal(t, i, *task.FocusOrder)
	}
}

func TestPlanner_Regenerate_NotifiesObservers(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	createTask(t, taskRepo, &model.Task{ID: "t-1", Content: "one"})

	ranker := &stubOracle{selection: &oracle.FocusSelection{TaskIDs: []string{"t-1"}, Reasoning: "pick"}}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())

	var got []FocusQueue
	planner.Subscribe(func(q FocusQueue) { got = append(got, q) })

	require.NoError(t, planner.Regenerate(ctx))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"t-1"}, got[0].TaskIDs)
}

func TestPlanner_TimeContextDescribesToday(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	createTask(t, taskRepo, &model.Task{ID: "t-1", Content: "one"})

	ranker := &stubOracle{selection: &oracle.FocusSelection{TaskIDs: []string{"t-1"}}}
	planner := NewPlannerService(taskRepo, ranker, 5, fixedClock())

	_, err := planner.GenerateAndCache(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Wednesday", ranker.lastContext.Weekday)
	assert.Equal(t, "2025-03-12", ranker.lastContext.Date)
}

func TestPlanner_CachedSortsNilOrdersLast(t *testing.T) {
	taskRepo, _ := newTestRepos(t)
	ctx := context.Background()

	today := fixedNow().Format(model.FocusDateFormat)

	a := createTask(t, taskRepo, &model.Task{ID: "t-a", Content: "ordered"})
	require.NoError(t, taskRepo.SetFocus(ctx, a.ID, today, 0))

	// A task flagged for today without an order, as after a partial write.
	b := createTask(t, taskRepo, &model.Task{ID: "t-b", Content: "unordered", FocusDate: &today})

	planner := NewPlannerService(taskRepo, nil, 5, fixedClock())
	queue, err := planner.GetCached(ctx)
	require.NoError(t, err)
	require.NotNil(t, queue)
	assert.Equal(t, []string{"t-a", "t-b"}, queue.TaskIDs)

	// Reading the cache must not backfill the missing order.
	stored, err := taskRepo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FocusOrder)
}
