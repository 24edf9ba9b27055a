package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/repository"
)

// staleReadTickets answers GetByID with a snapshot taken before another
// writer changed the row.
type staleReadTickets struct {
	repository.TicketRepository
	snapshot *domain.Ticket
}

func (s staleReadTickets) GetByID(context.Context, int64) (*domain.Ticket, error) {
	copied := *s.snapshot
	return &copied, nil
}

func TestPatchEngineDiffsAgainstRowInsideTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tickets := repository.NewSQLiteTicketRepository(f.store.DB)

	created := f.createTicket(t, TicketCreateInput{Priority: domain.PriorityLow})
	snapshot, err := tickets.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := f.tickets.PatchTicket(ctx, created.ID, domain.TicketPatch{Priority: ptr(domain.PriorityMedium)}); err != nil {
		t.Fatalf("concurrent patch: %v", err)
	}

	engine := NewPatchEngine(staleReadTickets{TicketRepository: tickets, snapshot: snapshot}, nil, f.clock.Now)
	result, err := engine.PatchTicket(ctx, created.ID, domain.TicketPatch{Priority: ptr(domain.PriorityHigh)})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if result.Old.Priority != domain.PriorityMedium {
		t.Errorf("old row should be the committed one, got priority %q", result.Old.Priority)
	}
	change, ok := result.Diff.Lookup("priority")
	if !ok {
		t.Fatalf("priority missing from diff %v", result.Diff)
	}
	if got := fmt.Sprint(change.Old); got != string(domain.PriorityMedium) {
		t.Errorf("diff old value %q, want %q", got, domain.PriorityMedium)
	}
	if result.New.Priority != domain.PriorityHigh {
		t.Errorf("new priority %q", result.New.Priority)
	}
}

func TestPatchEngineUnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	engine := NewPatchEngine(repository.NewSQLiteTicketRepository(f.store.DB), repository.NewSQLiteTaskRepository(f.store.DB), f.clock.Now)

	_, err := engine.PatchTicket(context.Background(), 9999, domain.TicketPatch{Title: ptr("x")})
	if status := statusOf(t, err); status != http.StatusNotFound {
		t.Errorf("ticket: expected 404, got %d", status)
	}
	_, err = engine.PatchTask(context.Background(), 9999, domain.TaskPatch{})
	if status := statusOf(t, err); status != http.StatusNotFound {
		t.Errorf("task: expected 404, got %d", status)
	}
}
