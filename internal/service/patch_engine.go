package service

import (
	"context"
	"errors"
	"time"

	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-api/pkg/errorutil"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// SystemClock returns UTC time truncated to the store's microsecond precision.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// TicketPatchResult is the outcome of a ticket partial update. For a no-op
// patch Old and New are the same row and Diff is empty.
type TicketPatchResult struct {
	Old  *domain.Ticket
	New  *domain.Ticket
	Diff domain.Diff
}

// TaskPatchResult is the task counterpart of TicketPatchResult.
type TaskPatchResult struct {
	Old  *domain.Task
	New  *domain.Task
	Diff domain.Diff
}

// PatchEngine applies sparse patches: inside the store's write transaction it
// computes the field diff against the stored row, writes it with a fresh
// updated_at and returns the re-read row.
type PatchEngine struct {
	tickets repository.TicketRepository
	tasks   repository.TaskRepository
	now     Clock
}

// NewPatchEngine constructs the engine.
func NewPatchEngine(tickets repository.TicketRepository, tasks repository.TaskRepository, now Clock) *PatchEngine {
	if now == nil {
		now = SystemClock
	}
	return &PatchEngine{tickets: tickets, tasks: tasks, now: now}
}

// PatchTicket applies patch to ticket id. The diff is taken against the row
// as locked by the write transaction.
func (e *PatchEngine) PatchTicket(ctx context.Context, id int64, patch domain.TicketPatch) (*TicketPatchResult, error) {
	change, err := e.tickets.ApplyChanges(ctx, id, func(current *domain.Ticket) (domain.Diff, time.Time, error) {
		diff, err := patch.Diff(current)
		if err != nil {
			return nil, time.Time{}, patchValidationError(err)
		}
		return diff, e.stamp(current.CreatedAt), nil
	})
	if err != nil {
		return nil, notFoundOr(err, "ticket", id)
	}
	return &TicketPatchResult{Old: change.Old, New: change.New, Diff: change.Diff}, nil
}

// PatchTask applies patch to task id.
func (e *PatchEngine) PatchTask(ctx context.Context, id int64, patch domain.TaskPatch) (*TaskPatchResult, error) {
	change, err := e.tasks.ApplyChanges(ctx, id, func(current *domain.Task) (domain.Diff, time.Time, error) {
		diff, err := patch.Diff(current)
		if err != nil {
			return nil, time.Time{}, patchValidationError(err)
		}
		return diff, e.stamp(current.CreatedAt), nil
	})
	if err != nil {
		return nil, notFoundOr(err, "task", id)
	}
	return &TaskPatchResult{Old: change.Old, New: change.New, Diff: change.Diff}, nil
}

// stamp never lets updated_at fall behind created_at, even across clock skew.
func (e *PatchEngine) stamp(createdAt time.Time) time.Time {
	now := e.now()
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

func notFoundOr(err error, resource string, id int64) error {
	if apperrors.IsNoRows(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

func patchValidationError(err error) error {
	var fieldErr *domain.FieldError
	if errors.As(err, &fieldErr) {
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": fieldErr.Field})
	}
	return apperrors.NewValidationError(err.Error(), nil)
}
