package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"focus-planner/internal/config"
	"focus-planner/internal/httpapi"
	"focus-planner/internal/model"
	"focus-planner/internal/notify"
	"focus-planner/internal/oracle"
	"focus-planner/internal/repository"
	"focus-planner/internal/service"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "focusplanner",
		Short: "A personal task planner with a daily focus queue.",
		Long:  `focusplanner keeps a task list, expands recurring tasks, and maintains a ranked "what to work on today" queue with scheduled check-ins.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the planner daemon (scheduler + HTTP API).",
		RunE:  runServe,
	}

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print today's focus queue, generating it if missing.",
		RunE:  runPlan,
	}

	addCmd = &cobra.Command{
		Use:   "add <content>",
		Short: "Add a task.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAdd,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List tasks.",
		RunE:  runList,
	}

	doneCmd = &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task (recurring tasks produce their next instance).",
		Args:  cobra.ExactArgs(1),
		RunE:  runDone,
	}

	nudgesCmd = &cobra.Command{
		Use:   "nudges",
		Short: "Show recent nudges.",
		RunE:  runNudges,
	}

	addDue        string
	addDueTime    string
	addCategory   string
	addPriority   string
	addRecurrence string
	addInterval   int
	addDays       string
	listStatus    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "focus-planner.yaml", "Path to the YAML config file.")

	addCmd.Flags().StringVar(&addDue, "due", "", "Due date (YYYY-MM-DD).")
	addCmd.Flags().StringVar(&addDueTime, "due-time", "", "Due time of day (HH:MM).")
	addCmd.Flags().StringVar(&addCategory, "category", "", "Category label.")
	addCmd.Flags().StringVar(&addPriority, "priority", "", "Priority: low, medium, or high.")
	addCmd.Flags().StringVar(&addRecurrence, "recur", "", "Recurrence: daily, weekly, monthly, or custom.")
	addCmd.Flags().IntVar(&addInterval, "interval", 1, "Periods between occurrences.")
	addCmd.Flags().StringVar(&addDays, "days", "", "Weekday indices for weekly recurrence, e.g. 1,3,5 (0=Sunday).")

	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: active or completed.")

	rootCmd.AddCommand(serveCmd, planCmd, addCmd, listCmd, doneCmd, nudgesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg       config.Config
	db        *gorm.DB
	taskRepo  *repository.TaskRepository
	nudgeRepo *repository.NudgeRepository
	tasks     *service.TaskService
	planner   *service.PlannerService
	ranker    oracle.Oracle
}

func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	taskRepo := repository.NewTaskRepository(db)
	nudgeRepo := repository.NewNudgeRepository(db)

	var ranker oracle.Oracle
	if cfg.Oracle.APIKey != "" {
		ranker = oracle.NewClient(cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.BaseURL, cfg.Oracle.Timeout)
	}

	expansion := service.NewExpansionService(taskRepo)
	tasks := service.NewTaskService(taskRepo, expansion)
	planner := service.NewPlannerService(taskRepo, ranker, cfg.FocusCap, time.Now)

	return &app{
		cfg:       cfg,
		db:        db,
		taskRepo:  taskRepo,
		nudgeRepo: nudgeRepo,
		tasks:     tasks,
		planner:   planner,
		ranker:    ranker,
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	var sink notify.Sink = notify.LogSink{}
	if a.cfg.Telegram.Token != "" {
		telegram, err := notify.NewTelegramSink(a.cfg.Telegram.Token, a.cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		sink = notify.Multi{notify.LogSink{}, telegram}
	}

	scheduler := service.NewSchedulerService(time.Local)
	checkin := service.NewCheckInService(a.taskRepo, a.nudgeRepo, a.planner, a.ranker, sink, scheduler, time.Now)
	if err := checkin.Reschedule(a.cfg.Notification); err != nil {
		return fmt.Errorf("schedule check-ins: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if queue, err := a.planner.InitializeOnStartup(ctx); err != nil {
		return fmt.Errorf("startup plan: %w", err)
	} else if queue != nil {
		log.Printf("focus queue ready: %d task(s)", len(queue.TaskIDs))
	}

	server := httpapi.NewServer(a.tasks, a.planner, a.nudgeRepo, time.Now)
	httpSrv := &http.Server{Addr: a.cfg.HTTPAddr, Handler: server.Handler()}
	go func() {
		log.Printf("HTTP API listening on %s", a.cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http: %v", err)
		}
	}()

	log.Println("Focus planner started.")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	queue, err := a.planner.InitializeOnStartup(ctx)
	if err != nil {
		return err
	}
	if queue == nil || len(queue.TaskIDs) == 0 {
		fmt.Println("Nothing planned for today.")
		return nil
	}

	fmt.Printf("Today's focus (%s):\n", queue.Reasoning)
	for i, id := range queue.TaskIDs {
		task, err := a.taskRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			continue
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, task.Content, task.ID)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	input := service.TaskInput{
		Content:            strings.Join(args, " "),
		Category:           addCategory,
		Priority:           addPriority,
		DueTime:            addDueTime,
		Recurrence:         addRecurrence,
		RecurrenceInterval: addInterval,
		RecurrenceDays:     model.ParseWeekdays(addDays),
	}
	if addDue != "" {
		due, err := time.ParseInLocation("2006-01-02", addDue, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --due %q: %w", addDue, err)
		}
		input.DueDate = &due
	}
	if addDueTime != "" {
		if err := config.ValidateClock(addDueTime); err != nil {
			return err
		}
	}

	task, err := a.tasks.CreateTask(cmd.Context(), input)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s: %s\n", task.ID, task.Content)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	var tasks []model.Task
	if listStatus != "" {
		tasks, err = a.tasks.ListByStatus(cmd.Context(), listStatus)
	} else {
		tasks, err = a.tasks.ListAll(cmd.Context())
	}
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}

	for _, t := range tasks {
		marker := " "
		if t.Status == model.StatusCompleted {
			marker = "x"
		}
		line := fmt.Sprintf("[%s] %s  %s", marker, t.ID, t.Content)
		if t.DueDate != nil {
			line += fmt.Sprintf("  (due %s)", t.DueDate.Format("2006-01-02"))
		}
		if t.IsRecurring() {
			line += fmt.Sprintf("  [%s]", t.Recurrence)
		}
		fmt.Println(line)
	}
	return nil
}

func runDone(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	task, err := a.tasks.CompleteTask(cmd.Context(), args[0], time.Now())
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task %s not found", args[0])
	}
	fmt.Printf("Completed: %s\n", task.Content)
	return nil
}

func runNudges(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	nudges, err := a.nudgeRepo.List(cmd.Context(), false)
	if err != nil {
		return err
	}
	if len(nudges) == 0 {
		fmt.Println("No nudges.")
		return nil
	}
	for _, n := range nudges {
		state := ""
		if n.Dismissed {
			state = " (dismissed)"
		}
		fmt.Printf("%s [%s]%s %s\n", n.CreatedAt.Format("2006-01-02 15:04"), n.Type, state, n.Message)
	}
	return nil
}
