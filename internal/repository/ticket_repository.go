package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/helpdesk-api/internal/domain"
)

// TicketFilter selects tickets for listing. Archived is a selector: false
// returns only live tickets, true only archived ones.
type TicketFilter struct {
	SubmittedBy *string
	Archived    bool
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ApplyChanges locks the row, lets change derive the diff from it, writes
	// the diff with its updated_at and re-reads the row, all in one
	// transaction. An empty diff commits without writing.
	ApplyChanges(ctx context.Context, id int64, change TicketChangeFunc) (*TicketChange, error)
}

// TicketChangeFunc derives the diff and updated_at from the locked row.
type TicketChangeFunc func(current *domain.Ticket) (domain.Diff, time.Time, error)

// TicketChange is a committed ticket update. Old and New are the same row
// when Diff is empty.
type TicketChange struct {
	Old  *domain.Ticket
	New  *domain.Ticket
	Diff domain.Diff
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, location, submitted_by, cc_email, assigned_to,
            status, priority, archived, screenshots, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
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

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketList(filter, dollarPlaceholder)
	rows, err := r.pool.Query(ctx, query, args...)
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

func (r *ticketRepository) ApplyChanges(ctx context.Context, id int64, change TicketChangeFunc) (*TicketChange, error) {
	var result *TicketChange
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanTicket(tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id))
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

		query, args, err := buildUpdate("tickets", ticketColumn, id, diff, updatedAt, dollarPlaceholder)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
		updated, err := scanTicket(tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
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
