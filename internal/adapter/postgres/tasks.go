package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/task"
)

const taskColumns = `id, title, description, status, priority, created_by, assigned_to,
	tags, result, created_at, updated_at, started_at, completed_at`

// TaskStore implements the task store port on PostgreSQL.
type TaskStore struct {
	pool *pgxpool.Pool
}

// NewTaskStore creates a postgres-backed task store.
func NewTaskStore(pool *pgxpool.Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

func (s *TaskStore) Create(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	priority := req.Priority
	if priority == "" {
		priority = task.PriorityNormal
	}

	id := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, created_by, assigned_to, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		id,
		task.DeriveTitle(req.Title, req.Description),
		req.Description,
		task.StatusPending,
		priority,
		req.CreatedBy,
		req.AssignedTo,
		textArray(req.Tags),
	)
	return scanTask(row)
}

func (s *TaskStore) Get(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (s *TaskStore) Update(ctx context.Context, t *task.Task) error {
	result, err := json.Marshal(t.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if t.Result == nil {
		result = nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
			assigned_to = $6, tags = $7, result = $8,
			updated_at = now(), started_at = $9, completed_at = $10
		WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Status, t.Priority,
		t.AssignedTo, textArray(t.Tags), result, t.StartedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TaskStore) List(ctx context.Context, filter task.Filter) ([]task.Task, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.AssignedTo != "" {
		add("assigned_to = $%d", filter.AssignedTo)
	}
	if filter.CreatedBy != "" {
		add("created_by = $%d", filter.CreatedBy)
	}
	if filter.Tag != "" {
		add("$%d = ANY(tags)", filter.Tag)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// scannable abstracts pgx.Row and pgx.Rows for the shared scan helper.
type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*task.Task, error) {
	var (
		t      task.Task
		result []byte
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.CreatedBy, &t.AssignedTo, &t.Tags, &result,
		&t.CreatedAt, &t.UpdatedAt, &t.StartedAt, &t.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if len(result) > 0 {
		t.Result = &task.Result{}
		if err := json.Unmarshal(result, t.Result); err != nil {
			return nil, fmt.Errorf("parse task result: %w", err)
		}
	}
	return &t, nil
}

// textArray keeps nil slices out of SQL NULL columns.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
