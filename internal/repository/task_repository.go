package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/helpdesk-api/internal/domain"
)

// TaskFilter narrows task listings by exact email match.
type TaskFilter struct {
	UserEmail  *string
	AssignedTo *string
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	ApplyChanges(ctx context.Context, id int64, change TaskChangeFunc) (*TaskChange, error)
	Delete(ctx context.Context, id int64) error
}

// TaskChangeFunc derives the diff and updated_at from the locked row.
type TaskChangeFunc func(current *domain.Task) (domain.Diff, time.Time, error)

// TaskChange is a committed task update.
type TaskChange struct {
	Old  *domain.Task
	New  *domain.Task
	Diff domain.Diff
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (text, completed, priority, user_email, assigned_to, screenshot_url, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		task.Text,
		task.Completed,
		string(task.Priority),
		task.UserEmail,
		task.AssignedTo,
		task.ScreenshotURL,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id))
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	query, args := buildTaskList(filter, dollarPlaceholder)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

func (r *taskRepository) ApplyChanges(ctx context.Context, id int64, change TaskChangeFunc) (*TaskChange, error) {
	var result *TaskChange
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		diff, updatedAt, err := change(current)
		if err != nil {
			return err
		}
		result = &TaskChange{Old: current, New: current}
		if diff.Empty() {
			return nil
		}

		query, args, err := buildUpdate("tasks", taskColumn, id, diff, updatedAt, dollarPlaceholder)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
		updated, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id))
		if err != nil {
			return err
		}
		result = &TaskChange{Old: current, New: updated, Diff: diff}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
