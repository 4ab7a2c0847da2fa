package jsonstore

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/AgentForge/internal/domain/task"
)

// TaskStore is the file-backed task store.
type TaskStore struct {
	col *collection[task.Task]
	now func() time.Time
}

func newTaskStore(path string, quiet time.Duration, log *slog.Logger) (*TaskStore, error) {
	col, err := openCollection(path, quiet, func(t *task.Task) string { return t.ID }, log)
	if err != nil {
		return nil, err
	}
	return &TaskStore{col: col, now: time.Now}, nil
}

// Create builds a task from the request with a fresh id and pending status.
func (s *TaskStore) Create(_ context.Context, req task.CreateRequest) (*task.Task, error) {
	now := s.now().UTC()
	priority := req.Priority
	if priority == "" {
		priority = task.PriorityNormal
	}

	t := &task.Task{
		ID:          uuid.NewString(),
		Title:       task.DeriveTitle(req.Title, req.Description),
		Description: req.Description,
		Status:      task.StatusPending,
		Priority:    priority,
		CreatedBy:   req.CreatedBy,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.col.put(t)
	return t, nil
}

func (s *TaskStore) Get(_ context.Context, id string) (*task.Task, error) {
	return s.col.get(id)
}

func (s *TaskStore) Update(_ context.Context, t *task.Task) error {
	if _, err := s.col.get(t.ID); err != nil {
		return err
	}
	t.UpdatedAt = s.now().UTC()
	s.col.put(t)
	return nil
}

func (s *TaskStore) Delete(_ context.Context, id string) error {
	return s.col.delete(id)
}

// List returns tasks matching the filter, newest first.
func (s *TaskStore) List(_ context.Context, filter task.Filter) ([]task.Task, error) {
	all := s.col.all()
	matched := make([]task.Task, 0, len(all))
	for _, t := range all {
		if filter.Matches(&t) {
			matched = append(matched, t)
		}
	}
	// Key order is by id; callers want recency.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}
