// Package taskstore defines the task persistence port.
package taskstore

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/domain/task"
)

// Store is the port interface for task persistence. Implementations are
// narrow file- or database-backed stores; the core never deletes tasks
// itself, deletion is a store concern surfaced through the API.
type Store interface {
	Create(ctx context.Context, req task.CreateRequest) (*task.Task, error)
	Get(ctx context.Context, id string) (*task.Task, error)
	Update(ctx context.Context, t *task.Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter task.Filter) ([]task.Task, error)
}
