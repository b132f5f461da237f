package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"focus-planner/internal/config"
	"focus-planner/internal/model"
	"focus-planner/internal/notify"
	"focus-planner/internal/oracle"
	"focus-planner/internal/repository"
)

// dueTimeDebounce is the minimum gap between per-task due-time
// notifications, tracked through Task.LastNotifiedAt.
const dueTimeDebounce = 60 * time.Second

const jobTimeout = 30 * time.Second

// CheckInService owns the time-driven triggers: morning and midday
// check-ins, the hourly overdue sweep, and the per-minute due-time sweep.
// It holds no state beyond its timer registrations; all de-duplication goes
// through the last_notified_at guard on tasks.
type CheckInService struct {
	taskRepo  *repository.TaskRepository
	nudgeRepo *repository.NudgeRepository
	planner   *PlannerService
	oracle    oracle.Oracle
	sink      notify.Sink
	sched     *SchedulerService
	now       func() time.Time

	mu      sync.Mutex
	entries []cron.EntryID
}

// NewCheckInService builds the scheduler. A nil summarizer means check-in
// messages always use the canned template. nowFn defaults to time.Now.
func NewCheckInService(
	taskRepo *repository.TaskRepository,
	nudgeRepo *repository.NudgeRepository,
	planner *PlannerService,
	summarizer oracle.Oracle,
	sink notify.Sink,
	sched *SchedulerService,
	nowFn func() time.Time,
) *CheckInService {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &CheckInService{
		taskRepo:  taskRepo,
		nudgeRepo: nudgeRepo,
		planner:   planner,
		oracle:    summarizer,
		sink:      sink,
		sched:     sched,
		now:       nowFn,
	}
}

// Reschedule tears down every registered timer and recreates the full set
// from cfg. Disabled notifications leave nothing scheduled. Full teardown is
// simpler than diffing individual timers and avoids drift.
func (s *CheckInService) Reschedule(cfg config.NotificationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.sched.Remove(id)
	}
	s.entries = nil

	if !cfg.Enabled {
		return nil
	}

	morning, err := s.sched.ScheduleDaily(cfg.MorningTime, s.job(func(ctx context.Context) {
		s.runLogged(ctx, "morning check-in", func(ctx context.Context) error {
			return s.RunCheckIn(ctx, model.NudgeMorningCheckIn, s.now())
		})
	}))
	if err != nil {
		return fmt.Errorf("schedule morning check-in: %w", err)
	}
	midday, err := s.sched.ScheduleDaily(cfg.MiddayTime, s.job(func(ctx context.Context) {
		s.runLogged(ctx, "midday check-in", func(ctx context.Context) error {
			return s.RunCheckIn(ctx, model.NudgeMiddayCheckIn, s.now())
		})
	}))
	if err != nil {
		return fmt.Errorf("schedule midday check-in: %w", err)
	}
	overdue, err := s.sched.ScheduleHourlyAt(cfg.SweepMinute(), s.job(func(ctx context.Context) {
		s.runLogged(ctx, "overdue sweep", func(ctx context.Context) error {
			return s.RunOverdueSweep(ctx, s.now())
		})
	}))
	if err != nil {
		return fmt.Errorf("schedule overdue sweep: %w", err)
	}
	dueTime, err := s.sched.ScheduleEveryMinute(s.job(func(ctx context.Context) {
		s.runLogged(ctx, "due-time sweep", func(ctx context.Context) error {
			return s.RunDueTimeSweep(ctx, s.now())
		})
	}))
	if err != nil {
		return fmt.Errorf("schedule due-time sweep: %w", err)
	}

	s.entries = []cron.EntryID{morning, midday, overdue, dueTime}
	return nil
}

func (s *CheckInService) job(run func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		run(ctx)
	}
}

func (s *CheckInService) runLogged(ctx context.Context, name string, run func(ctx context.Context) error) {
	if err := run(ctx); err != nil {
		log.Printf("%s: %v", name, err)
	}
}

// RunCheckIn produces and persists an advisory nudge, notifies the user, and
// regenerates the focus queue.
func (s *CheckInService) RunCheckIn(ctx context.Context, nudgeType string, now time.Time) error {
	active, err := s.taskRepo.GetByStatus(ctx, model.StatusActive)
	if err != nil {
		return err
	}

	var overdueIDs []string
	for _, t := range active {
		if t.IsOverdue(now) {
			overdueIDs = append(overdueIDs, t.ID)
		}
	}

	message := s.advisoryMessage(ctx, active, len(overdueIDs), nudgeType, now)

	nudge := &model.Nudge{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Type:           nudgeType,
		Message:        message,
		RelatedTaskIDs: model.JoinTaskIDs(overdueIDs),
	}
	if err := s.nudgeRepo.Append(ctx, nudge); err != nil {
		return err
	}

	s.sink.Show(ctx, notify.Notification{
		Title:          checkInTitle(nudgeType),
		Body:           message,
		RelatedTaskIDs: overdueIDs,
	})

	return s.planner.Regenerate(ctx)
}

// advisoryMessage asks the oracle for a short status summary and falls back
// to a canned template when the oracle is unconfigured or fails.
func (s *CheckInService) advisoryMessage(ctx context.Context, active []model.Task, overdueCount int, nudgeType string, now time.Time) string {
	if s.oracle != nil {
		items := make([]oracle.StatusItem, 0, len(active))
		for _, t := range active {
			items = append(items, oracle.StatusItem{
				Content:   t.Content,
				Priority:  t.Priority,
				IsOverdue: t.IsOverdue(now),
			})
		}
		message, err := s.oracle.SummarizeStatus(ctx, items, timeOfDay(nudgeType))
		if err == nil && message != "" {
			return message
		}
		if err != nil {
			log.Printf("check-in: oracle summary failed, using canned message: %v", err)
		}
	}
	return cannedMessage(len(active), overdueCount, nudgeType)
}

func cannedMessage(activeCount, overdueCount int, nudgeType string) string {
	greeting := "Time for a check-in."
	switch nudgeType {
	case model.NudgeMorningCheckIn:
		greeting = "Good morning!"
	case model.NudgeMiddayCheckIn:
		greeting = "Midday check-in."
	}
	if activeCount == 0 {
		return fmt.Sprintf("%s Your list is clear. Enjoy the breathing room.", greeting)
	}
	if overdueCount > 0 {
		return fmt.Sprintf("%s You have %d open tasks, %d overdue. Pick one and start.", greeting, activeCount, overdueCount)
	}
	return fmt.Sprintf("%s You have %d open tasks. Pick one and start.", greeting, activeCount)
}

func checkInTitle(nudgeType string) string {
	switch nudgeType {
	case model.NudgeMorningCheckIn:
		return "Morning check-in"
	case model.NudgeMiddayCheckIn:
		return "Midday check-in"
	default:
		return "Check-in"
	}
}

func timeOfDay(nudgeType string) string {
	switch nudgeType {
	case model.NudgeMorningCheckIn:
		return "morning"
	case model.NudgeMiddayCheckIn:
		return "midday"
	default:
		return "day"
	}
}

// RunOverdueSweep emits one aggregate nudge covering every overdue active
// task. No tasks overdue means no nudge. Re-running after a partial failure
// is safe; the sweep writes nothing per task.
func (s *CheckInService) RunOverdueSweep(ctx context.Context, now time.Time) error {
	active, err := s.taskRepo.GetByStatus(ctx, model.StatusActive)
	if err != nil {
		return err
	}

	var overdueIDs []string
	for _, t := range active {
		if t.IsOverdue(now) {
			overdueIDs = append(overdueIDs, t.ID)
		}
	}
	if len(overdueIDs) == 0 {
		return nil
	}

	message := fmt.Sprintf("You have %d overdue task(s). Worth a look.", len(overdueIDs))
	nudge := &model.Nudge{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Type:           model.NudgeOverdueReminder,
		Message:        message,
		RelatedTaskIDs: model.JoinTaskIDs(overdueIDs),
	}
	if err := s.nudgeRepo.Append(ctx, nudge); err != nil {
		return err
	}

	s.sink.Show(ctx, notify.Notification{
		Title:          "Overdue tasks",
		Body:           message,
		RelatedTaskIDs: overdueIDs,
	})
	return nil
}

// RunDueTimeSweep notifies for every active task whose due date matches
// today and whose HH:mm due time matches the current minute. The
// last_notified_at guard is written before delivery so a re-run cannot
// double-send.
func (s *CheckInService) RunDueTimeSweep(ctx context.Context, now time.Time) error {
	active, err := s.taskRepo.GetByStatus(ctx, model.StatusActive)
	if err != nil {
		return err
	}

	today := now.Format(model.FocusDateFormat)
	minute := now.Format("15:04")

	for _, t := range active {
		if t.DueDate == nil || t.DueTime != minute {
			continue
		}
		if t.DueDate.In(now.Location()).Format(model.FocusDateFormat) != today {
			continue
		}
		if t.LastNotifiedAt != nil && now.Sub(*t.LastNotifiedAt) < dueTimeDebounce {
			continue
		}

		if err := s.taskRepo.SetLastNotified(ctx, t.ID, now); err != nil {
			return err
		}
		s.sink.Show(ctx, notify.Notification{
			Title:          "Task due now",
			Body:           t.Content,
			RelatedTaskIDs: []string{t.ID},
		})
	}
	return nil
}
