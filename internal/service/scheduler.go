// Package service implements the coordination core on top of the ports:
// scheduling, assignment, execution, delegation, sessions, and the team
// event loop.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/schedule"
	"github.com/Strob0t/AgentForge/internal/domain/task"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
	"github.com/Strob0t/AgentForge/internal/port/schedulestore"
	"github.com/Strob0t/AgentForge/internal/port/taskstore"
)

// systemSchedules is the canonical list of built-in recurring schedules.
// Persisted system schedules are reconciled against this list at startup:
// missing ones are seeded, retired ones are force-deleted.
func systemSchedules() []schedule.Schedule {
	return []schedule.Schedule{
		{
			Name:    "self-reflection",
			Pattern: schedule.Pattern{Kind: schedule.KindCron, Cron: "0 */4 * * *"},
			Template: task.CreateRequest{
				Title:       "Periodic self-reflection",
				Description: "Review recent task outcomes and note what to do differently.",
				CreatedBy:   agent.SystemAgentID,
				Tags:        []string{"reflection"},
			},
			Source:  schedule.SourceSystem,
			Enabled: true,
		},
		{
			Name:    "stats-digest",
			Pattern: schedule.Pattern{Kind: schedule.KindInterval, Interval: time.Hour},
			Template: task.CreateRequest{
				Title:       "Aggregate agent stats",
				Description: "Summarize per-agent execution counters for the feed channel.",
				CreatedBy:   agent.SystemAgentID,
				Tags:        []string{"stats-digest"},
			},
			Source:  schedule.SourceSystem,
			Enabled: true,
		},
		{
			Name:    "weekly-review",
			Pattern: schedule.Pattern{Kind: schedule.KindCron, Cron: "0 9 * * 1"},
			Template: task.CreateRequest{
				Title:       "Weekly team review",
				Description: "Produce a review of the past week: completed work, failures, trust shifts.",
				CreatedBy:   agent.SystemAgentID,
				Tags:        []string{"summarization"},
			},
			Source:  schedule.SourceSystem,
			Enabled: true,
		},
	}
}

// Scheduler evaluates recurring schedules and instantiates tasks from their
// templates when due.
type Scheduler struct {
	cfg       config.Scheduler
	schedules schedulestore.Store
	tasks     taskstore.Store
	bus       eventbus.Bus
	now       func() time.Time
}

// NewScheduler creates a scheduler service.
func NewScheduler(cfg config.Scheduler, schedules schedulestore.Store, tasks taskstore.Store, bus eventbus.Bus) *Scheduler {
	return &Scheduler{cfg: cfg, schedules: schedules, tasks: tasks, bus: bus, now: time.Now}
}

// Reconcile aligns persisted system schedules with the declared list:
// persisted system schedules whose name is no longer declared are removed
// (bypassing the delete guard), declared schedules missing from storage are
// seeded, and the rest are left untouched.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	declared := systemSchedules()
	declaredNames := make(map[string]bool, len(declared))
	for _, d := range declared {
		declaredNames[d.Name] = true
	}

	persisted, err := s.schedules.List(ctx)
	if err != nil {
		return fmt.Errorf("scheduler reconcile: %w", err)
	}

	existing := make(map[string]bool)
	for _, p := range persisted {
		if p.Source != schedule.SourceSystem {
			continue
		}
		if !declaredNames[p.Name] {
			if err := s.schedules.ForceDelete(ctx, p.ID); err != nil {
				return fmt.Errorf("remove retired schedule %s: %w", p.Name, err)
			}
			slog.Info("removed retired system schedule", "name", p.Name)
			continue
		}
		existing[p.Name] = true
	}

	for _, d := range declared {
		if existing[d.Name] {
			continue
		}
		seeded := d
		if err := s.schedules.Create(ctx, &seeded); err != nil {
			return fmt.Errorf("seed schedule %s: %w", d.Name, err)
		}
		slog.Info("seeded system schedule", "name", d.Name)
	}
	return nil
}

// Run ticks until ctx is cancelled, evaluating every enabled schedule's
// due-ness each tick.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates all schedules once. Exported so tests and the control API
// can trigger an evaluation pass without waiting for the timer.
func (s *Scheduler) Tick(ctx context.Context) {
	all, err := s.schedules.List(ctx)
	if err != nil {
		slog.Error("schedule tick: list failed", "error", err)
		return
	}

	now := s.now()
	for i := range all {
		sc := all[i]
		if !sc.Enabled || !sc.Pattern.Due(sc.LastRun, now) {
			continue
		}
		if err := s.fire(ctx, &sc, now); err != nil {
			slog.Error("schedule fire failed", "schedule", sc.Name, "error", err)
		}
	}
}

// fire instantiates one task from a due schedule. LastRun is persisted
// before task creation so a slow create cannot double-fire the schedule.
func (s *Scheduler) fire(ctx context.Context, sc *schedule.Schedule, now time.Time) error {
	sc.MarkRun(now)
	if err := s.schedules.Update(ctx, sc); err != nil {
		return fmt.Errorf("advance lastRun: %w", err)
	}

	req := sc.Template
	if sc.Source == schedule.SourceSystem {
		req.AssignedTo = agent.SystemAgentID
	}

	t, err := s.tasks.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	// System-sourced tasks skip the assignment pass entirely.
	if sc.Source == schedule.SourceSystem {
		t.Status = task.StatusAssigned
		if err := s.tasks.Update(ctx, t); err != nil {
			return fmt.Errorf("mark assigned: %w", err)
		}
	}

	slog.Info("schedule fired", "schedule", sc.Name, "task_id", t.ID)

	s.publish(ctx, eventbus.SubjectScheduleFired, eventbus.ScheduleFiredPayload{
		ScheduleID: sc.ID,
		Name:       sc.Name,
		TaskID:     t.ID,
	})
	s.publish(ctx, eventbus.SubjectTaskCreated, eventbus.TaskCreatedPayload{
		TaskID:     t.ID,
		Title:      t.Title,
		CreatedBy:  t.CreatedBy,
		AssignedTo: t.AssignedTo,
	})
	return nil
}

func (s *Scheduler) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event failed", "subject", subject, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event failed", "subject", subject, "error", err)
	}
}
