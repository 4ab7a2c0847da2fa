package jsonstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/schedule"
)

// ScheduleStore is the file-backed schedule store.
type ScheduleStore struct {
	col *collection[schedule.Schedule]
	now func() time.Time
}

func newScheduleStore(path string, quiet time.Duration, log *slog.Logger) (*ScheduleStore, error) {
	col, err := openCollection(path, quiet, func(s *schedule.Schedule) string { return s.ID }, log)
	if err != nil {
		return nil, err
	}
	return &ScheduleStore{col: col, now: time.Now}, nil
}

func (s *ScheduleStore) Create(_ context.Context, sc *schedule.Schedule) error {
	if err := sc.Pattern.Validate(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	now := s.now().UTC()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	s.col.put(sc)
	return nil
}

func (s *ScheduleStore) Get(_ context.Context, id string) (*schedule.Schedule, error) {
	return s.col.get(id)
}

func (s *ScheduleStore) Update(_ context.Context, sc *schedule.Schedule) error {
	if err := sc.Pattern.Validate(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	if _, err := s.col.get(sc.ID); err != nil {
		return err
	}
	sc.UpdatedAt = s.now().UTC()
	s.col.put(sc)
	return nil
}

// Delete removes a schedule. System-declared schedules are reconciled back
// at startup, so deleting them is refused rather than silently undone.
func (s *ScheduleStore) Delete(_ context.Context, id string) error {
	existing, err := s.col.get(id)
	if err != nil {
		return err
	}
	if existing.Source == schedule.SourceSystem {
		return domain.ErrSystemSchedule
	}
	return s.col.delete(id)
}

// ForceDelete removes a schedule regardless of source, for startup
// reconciliation of retired system schedules.
func (s *ScheduleStore) ForceDelete(_ context.Context, id string) error {
	return s.col.delete(id)
}

func (s *ScheduleStore) List(_ context.Context) ([]schedule.Schedule, error) {
	return s.col.all(), nil
}
