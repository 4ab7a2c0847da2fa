// Package schedulestore defines the recurring-schedule persistence port.
package schedulestore

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/domain/schedule"
)

// Store is the port interface for schedule persistence.
type Store interface {
	Create(ctx context.Context, s *schedule.Schedule) error
	Get(ctx context.Context, id string) (*schedule.Schedule, error)
	Update(ctx context.Context, s *schedule.Schedule) error

	// Delete removes a schedule. System-declared schedules cannot be
	// deleted; implementations return domain.ErrSystemSchedule.
	Delete(ctx context.Context, id string) error

	// ForceDelete removes a schedule regardless of source. Reserved for
	// startup reconciliation of system schedules no longer declared.
	ForceDelete(ctx context.Context, id string) error

	List(ctx context.Context) ([]schedule.Schedule, error)
}
