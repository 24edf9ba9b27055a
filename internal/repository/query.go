package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supportdesk/helpdesk-api/internal/domain"
)

// placeholderFunc renders the n-th (1-based) bind parameter for a SQL dialect.
type placeholderFunc func(n int) string

func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func questionPlaceholder(int) string { return "?" }

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const ticketColumns = `id, title, description, location, submitted_by, cc_email, assigned_to,
               status, priority, archived, screenshots, created_at, updated_at`

const taskColumns = `id, text, completed, priority, user_email, assigned_to, screenshot_url, created_at, updated_at`

const userColumns = `id, first_name, last_name, email, company, role, password, created_at`

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		status   string
		priority string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Location,
		&ticket.SubmittedBy,
		&ticket.CCEmail,
		&ticket.AssignedTo,
		&status,
		&priority,
		&ticket.Archived,
		&ticket.Screenshots,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.Priority = domain.Priority(priority)
	return &ticket, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task     domain.Task
		priority string
	)
	if err := row.Scan(
		&task.ID,
		&task.Text,
		&task.Completed,
		&priority,
		&task.UserEmail,
		&task.AssignedTo,
		&task.ScreenshotURL,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.Priority = domain.Priority(priority)
	return &task, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Company,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func buildTicketList(filter TicketFilter, ph placeholderFunc) (string, []any) {
	args := []any{filter.Archived}
	clauses := []string{"archived = " + ph(1)}

	if filter.SubmittedBy != nil {
		args = append(args, *filter.SubmittedBy)
		clauses = append(clauses, "submitted_by = "+ph(len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id ASC`,
		ticketColumns, strings.Join(clauses, " AND "))
	return query, args
}

func buildTaskList(filter TaskFilter, ph placeholderFunc) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserEmail != nil {
		args = append(args, *filter.UserEmail)
		clauses = append(clauses, "user_email = "+ph(len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, "assigned_to = "+ph(len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY created_at DESC, id ASC`,
		taskColumns, strings.Join(clauses, " AND "))
	return query, args
}

// columnResolver maps a diff field onto its fixed storage column.
type columnResolver func(field string) (string, error)

func ticketColumn(field string) (string, error) {
	return domain.TicketField(field).Column()
}

func taskColumn(field string) (string, error) {
	return domain.TaskField(field).Column()
}

// buildUpdate renders an UPDATE for the columns named by diff plus updated_at.
// Column names never come from the caller: each field is resolved through the
// record kind's fixed allowlist.
func buildUpdate(table string, resolve columnResolver, id int64, diff domain.Diff, updatedAt time.Time, ph placeholderFunc) (string, []any, error) {
	sets := make([]string, 0, len(diff)+1)
	args := make([]any, 0, len(diff)+2)
	for _, change := range diff {
		col, err := resolve(change.Field)
		if err != nil {
			return "", nil, err
		}
		args = append(args, sqlValue(change.New))
		sets = append(sets, fmt.Sprintf("%s = %s", col, ph(len(args))))
	}
	args = append(args, updatedAt)
	sets = append(sets, "updated_at = "+ph(len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = %s`, table, strings.Join(sets, ", "), ph(len(args)))
	return query, args, nil
}

func sqlValue(v any) any {
	switch val := v.(type) {
	case domain.TicketStatus:
		return string(val)
	case domain.Priority:
		return string(val)
	default:
		return v
	}
}
