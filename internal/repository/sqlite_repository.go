package repository

import (
	"context"
	"database/sql"

	"github.com/supportdesk/helpdesk-api/internal/domain"
)

// SQLite-backed implementations share the query builders with the Postgres
// ones and differ only in placeholders and transaction plumbing.

type sqliteTicketRepository struct {
	db *sql.DB
}

// NewSQLiteTicketRepository returns a TicketRepository over database/sql.
func NewSQLiteTicketRepository(db *sql.DB) TicketRepository {
	return &sqliteTicketRepository{db: db}
}

func (r *sqliteTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, location, submitted_by, cc_email, assigned_to,
            status, priority, archived, screenshots, created_at, updated_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
        RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Location,
		ticket.SubmittedBy,
		ticket.CCEmail,
		ticket.AssignedTo,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.Archived,
		ticket.Screenshots,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (r *sqliteTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=?`, id))
}

func (r *sqliteTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketList(filter, questionPlaceholder)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *sqliteTicketRepository) ApplyChanges(ctx context.Context, id int64, change TicketChangeFunc) (*TicketChange, error) {
	var result *TicketChange
	err := withSQLTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=?`, id))
		if err != nil {
			return err
		}
		diff, updatedAt, err := change(current)
		if err != nil {
			return err
		}
		result = &TicketChange{Old: current, New: current}
		if diff.Empty() {
			return nil
		}

		query, args, err := buildUpdate("tickets", ticketColumn, id, diff, updatedAt, questionPlaceholder)
		if err != nil {
			return err
		}
		if err := execOne(ctx, tx, query, args...); err != nil {
			return err
		}
		updated, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=?`, id))
		if err != nil {
			return err
		}
		result = &TicketChange{Old: current, New: updated, Diff: diff}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type sqliteTaskRepository struct {
	db *sql.DB
}

// NewSQLiteTaskRepository returns a TaskRepository over database/sql.
func NewSQLiteTaskRepository(db *sql.DB) TaskRepository {
	return &sqliteTaskRepository{db: db}
}

func (r *sqliteTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (text, completed, priority, user_email, assigned_to, screenshot_url, created_at, updated_at)
        VALUES (?,?,?,?,?,?,?,?)
        RETURNING id`
	return r.db.QueryRowContext(ctx, query,
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

func (r *sqliteTaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r *sqliteTaskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	query, args := buildTaskList(filter, questionPlaceholder)
	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *sqliteTaskRepository) ApplyChanges(ctx context.Context, id int64, change TaskChangeFunc) (*TaskChange, error) {
	var result *TaskChange
	err := withSQLTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
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

		query, args, err := buildUpdate("tasks", taskColumn, id, diff, updatedAt, questionPlaceholder)
		if err != nil {
			return err
		}
		if err := execOne(ctx, tx, query, args...); err != nil {
			return err
		}
		updated, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
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

func (r *sqliteTaskRepository) Delete(ctx context.Context, id int64) error {
	return withSQLTx(ctx, r.db, func(tx *sql.Tx) error {
		return execOne(ctx, tx, `DELETE FROM tasks WHERE id=?`, id)
	})
}

type sqliteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository returns a UserRepository over database/sql.
func NewSQLiteUserRepository(db *sql.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

func (r *sqliteUserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, company, role, password, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Company,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID)
	return mapInsertError(err)
}

func (r *sqliteUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

func (r *sqliteUserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return withSQLTx(ctx, r.db, func(tx *sql.Tx) error {
		return execOne(ctx, tx, `UPDATE users SET password=? WHERE email=?`, passwordHash, email)
	})
}

type sqliteTicketHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteTicketHistoryRepository returns a TicketHistoryRepository over database/sql.
func NewSQLiteTicketHistoryRepository(db *sql.DB) TicketHistoryRepository {
	return &sqliteTicketHistoryRepository{db: db}
}

func (r *sqliteTicketHistoryRepository) Append(ctx context.Context, entries []domain.TicketHistory) error {
	if len(entries) == 0 {
		return nil
	}
	const query = `
        INSERT INTO ticket_history (ticket_id, field, old_value, new_value, created_at)
        VALUES (?,?,?,?,?)
        RETURNING id`
	return withSQLTx(ctx, r.db, func(tx *sql.Tx) error {
		for i := range entries {
			entry := &entries[i]
			if err := tx.QueryRowContext(ctx, query,
				entry.TicketID,
				string(entry.Field),
				entry.OldValue,
				entry.NewValue,
				entry.CreatedAt,
			).Scan(&entry.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *sqliteTicketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, field, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=? ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}

func withSQLTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// execOne runs a statement that must touch exactly one row.
func execOne(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
