package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/helpdesk-api/internal/domain"
)

// TicketHistoryRepository stores per-field audit entries.
type TicketHistoryRepository interface {
	Append(ctx context.Context, entries []domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Append(ctx context.Context, entries []domain.TicketHistory) error {
	if len(entries) == 0 {
		return nil
	}
	const query = `
        INSERT INTO ticket_history (ticket_id, field, old_value, new_value, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i := range entries {
		entry := &entries[i]
		if err := tx.QueryRow(ctx, query,
			entry.TicketID,
			string(entry.Field),
			entry.OldValue,
			entry.NewValue,
			entry.CreatedAt,
		).Scan(&entry.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, field, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
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

func scanHistory(row rowScanner) (*domain.TicketHistory, error) {
	var (
		entry domain.TicketHistory
		field string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.TicketID,
		&field,
		&entry.OldValue,
		&entry.NewValue,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	entry.Field = domain.TicketField(field)
	return &entry, nil
}
