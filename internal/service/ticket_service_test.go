package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/mail"
	"github.com/supportdesk/helpdesk-api/internal/storage"
	apperrors "github.com/supportdesk/helpdesk-api/pkg/errorutil"
)

func upload(name, body string) storage.Upload {
	return storage.Upload{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewBufferString(body)), nil
		},
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected domain error, got %T: %v", err, err)
	}
	return domainErr.HTTPStatus
}

func TestCreateTicketQueuesNotificationsAndRoundTrips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.tickets.CreateTicket(ctx, TicketCreateInput{
		Title:       "VPN down",
		Description: "cannot reach intranet",
		SubmittedBy: "ada@helpdesk.test",
		Location:    ptr("Room 4"),
		CCEmail:     ptr("boss@helpdesk.test"),
		Priority:    domain.PriorityHigh,
	}, []storage.Upload{upload("shot.png", "png"), upload("log.txt", "log")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.Status != domain.TicketStatusOpen {
		t.Errorf("expected default status Open, got %q", created.Status)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("created_at %v and updated_at %v should share one stamp", created.CreatedAt, created.UpdatedAt)
	}
	if len(created.Screenshots) != 2 {
		t.Fatalf("expected 2 screenshot urls, got %v", created.Screenshots)
	}
	if created.SubmittedByName != "ada@helpdesk.test" {
		t.Errorf("unknown submitter should fall back to email, got %q", created.SubmittedByName)
	}

	jobs := f.queue.snapshot()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(jobs))
	}
	want := map[string]string{
		"support@helpdesk.test": mail.TemplateTicketCreatedSupport,
		"ada@helpdesk.test":     mail.TemplateTicketCreatedSubmitter,
		"boss@helpdesk.test":    mail.TemplateTicketCreatedCC,
	}
	for _, job := range jobs {
		if want[job.To] != job.Template {
			t.Errorf("unexpected job %s -> %s", job.To, job.Template)
		}
		if job.Params["TicketID"] != created.ID {
			t.Errorf("job params missing ticket id: %v", job.Params)
		}
	}

	fetched, err := f.tickets.GetTicket(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Title != created.Title || fetched.Description != created.Description ||
		fetched.Status != created.Status || fetched.Priority != created.Priority ||
		!fetched.CreatedAt.Equal(created.CreatedAt) || !fetched.UpdatedAt.Equal(created.UpdatedAt) ||
		*fetched.Location != *created.Location || *fetched.CCEmail != *created.CCEmail ||
		fetched.Archived != created.Archived || fetched.AssignedTo != nil {
		t.Errorf("round trip mismatch:\ncreated %+v\nfetched %+v", created, fetched)
	}
	for i := range created.Screenshots {
		if fetched.Screenshots[i] != created.Screenshots[i] {
			t.Errorf("screenshot %d: %q != %q", i, fetched.Screenshots[i], created.Screenshots[i])
		}
	}
}

func TestCreateTicketWithoutAttachmentsStoresEmptyList(t *testing.T) {
	f := newFixture(t)
	view := f.createTicket(t, TicketCreateInput{})
	if view.Screenshots == nil || len(view.Screenshots) != 0 {
		t.Errorf("expected empty non-nil screenshots, got %#v", view.Screenshots)
	}
	if got := f.queue.templatesFor("boss@helpdesk.test"); len(got) != 0 {
		t.Errorf("no cc means no cc notification, got %v", got)
	}
	if n := len(f.queue.snapshot()); n != 2 {
		t.Errorf("expected support and submitter notifications, got %d", n)
	}
}

func TestCreateTicketAttachmentFailureAbortsInsert(t *testing.T) {
	f := newFixture(t, withAttachments(failingAttachments{}))
	ctx := context.Background()

	_, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Title: "x", SubmittedBy: "ada@helpdesk.test"},
		[]storage.Upload{upload("a.png", "a")})
	if err == nil {
		t.Fatal("expected attachment failure")
	}
	if status := statusOf(t, err); status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", status)
	}

	list, err := f.tickets.ListTickets(ctx, TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("no ticket should be persisted, got %d", len(list))
	}
	if n := len(f.queue.snapshot()); n != 0 {
		t.Errorf("no notification expected, got %d", n)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.CreateTicket(context.Background(), TicketCreateInput{Title: "  ", SubmittedBy: "a@b"}, nil)
	if status := statusOf(t, err); status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestCreateTicketSurvivesFullQueue(t *testing.T) {
	f := newFixture(t)
	f.queue.full = true
	view := f.createTicket(t, TicketCreateInput{})
	if view.ID == 0 {
		t.Error("ticket should be created even when notifications are dropped")
	}
}

func TestPatchTicketEmptyIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createTicket(t, TicketCreateInput{})
	f.queue.reset()

	patched, err := f.tickets.PatchTicket(ctx, created.ID, domain.TicketPatch{})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !patched.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("updated_at bumped on no-op: %v -> %v", created.UpdatedAt, patched.UpdatedAt)
	}
	if n := len(f.queue.snapshot()); n != 0 {
		t.Errorf("no-op patch queued %d notifications", n)
	}
	history, err := f.tickets.History(ctx, created.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("no-op patch recorded history %v", history)
	}
}

func TestPatchTicketNilFieldLeavesValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createTicket(t, TicketCreateInput{Priority: domain.PriorityHigh})

	patched, err := f.tickets.PatchTicket(ctx, created.ID, domain.TicketPatch{Priority: nil, Title: ptr("Printer on fire")})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if patched.Priority != domain.PriorityHigh {
		t.Errorf("priority changed to %q", patched.Priority)
	}
	if patched.Title != "Printer on fire" {
		t.Errorf("title not applied: %q", patched.Title)
	}
	if !patched.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("updated_at not bumped: %v -> %v", created.UpdatedAt, patched.UpdatedAt)
	}
}

func TestPatchTicketStatusNotifications(t *testing.T) {
	tests := []struct {
		name    string
		initial domain.TicketStatus
		next    domain.TicketStatus
		want    int
	}{
		{name: "resolve", initial: domain.TicketStatusOpen, next: domain.TicketStatusResolved, want: 1},
		{name: "close", initial: domain.TicketStatusInProgress, next: domain.TicketStatusClosed, want: 1},
		{name: "resolved again", initial: domain.TicketStatusResolved, next: domain.TicketStatusResolved, want: 1},
		{name: "in progress", initial: domain.TicketStatusOpen, next: domain.TicketStatusInProgress, want: 0},
		{name: "reopen", initial: domain.TicketStatusResolved, next: domain.TicketStatusOpen, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			created := f.createTicket(t, TicketCreateInput{Status: tc.initial})
			f.queue.reset()

			status := tc.next
			if _, err := f.tickets.PatchTicket(context.Background(), created.ID, domain.TicketPatch{Status: &status}); err != nil {
				t.Fatalf("patch: %v", err)
			}
			got := f.queue.templatesFor("ada@helpdesk.test")
			if len(got) != tc.want {
				t.Fatalf("expected %d notifications, got %v", tc.want, got)
			}
			if tc.want == 1 && got[0] != mail.TemplateTicketStatus {
				t.Errorf("unexpected template %q", got[0])
			}
		})
	}
}

func TestPatchTicketUnknownIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.PatchTicket(context.Background(), 999, domain.TicketPatch{Title: ptr("x")})
	if status := statusOf(t, err); status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestPatchTicketBlankTitleRejected(t *testing.T) {
	f := newFixture(t)
	created := f.createTicket(t, TicketCreateInput{})
	_, err := f.tickets.PatchTicket(context.Background(), created.ID, domain.TicketPatch{Title: ptr("   ")})
	if status := statusOf(t, err); status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestCancelArchivesAndListingSelectsArchived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createTicket(t, TicketCreateInput{Title: "A"})
	b := f.createTicket(t, TicketCreateInput{Title: "B"})
	f.queue.reset()

	canceled, err := f.tickets.CancelTicket(ctx, a.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !canceled.Archived || canceled.Status != domain.TicketStatusCanceled {
		t.Errorf("cancel did not archive: %+v", canceled)
	}
	if got := f.queue.templatesFor("ada@helpdesk.test"); len(got) != 1 || got[0] != mail.TemplateTicketCanceled {
		t.Errorf("expected one cancel notification, got %v", got)
	}

	live, err := f.tickets.ListTickets(ctx, TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(live) != 1 || live[0].ID != b.ID {
		t.Errorf("default listing should only hold B, got %+v", live)
	}

	archived, err := f.tickets.ListTickets(ctx, TicketListFilter{Archived: true})
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != a.ID {
		t.Errorf("archived listing should only hold A, got %+v", archived)
	}

	history, err := f.tickets.History(ctx, a.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected status and archived entries, got %+v", history)
	}
	if history[0].Field != domain.TicketFieldStatus || history[0].OldValue != "Open" || history[0].NewValue != "Canceled" {
		t.Errorf("unexpected status entry %+v", history[0])
	}
	if history[1].Field != domain.TicketFieldArchived || history[1].NewValue != "true" {
		t.Errorf("unexpected archived entry %+v", history[1])
	}

	if _, err := f.tickets.CancelTicket(ctx, 4242); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("cancel of unknown ticket should be 404")
	}
}

func TestListTicketsOrderAndSubmitterFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createTicket(t, TicketCreateInput{Title: "first", SubmittedBy: "ada@helpdesk.test"})
	second := f.createTicket(t, TicketCreateInput{Title: "second", SubmittedBy: "bob@helpdesk.test"})
	third := f.createTicket(t, TicketCreateInput{Title: "third", SubmittedBy: "ada@helpdesk.test"})

	all, err := f.tickets.ListTickets(ctx, TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != third.ID || all[1].ID != second.ID || all[2].ID != first.ID {
		t.Errorf("expected newest first, got %+v", all)
	}

	ada, err := f.tickets.ListTickets(ctx, TicketListFilter{SubmittedBy: ptr("ada@helpdesk.test")})
	if err != nil {
		t.Fatalf("list ada: %v", err)
	}
	if len(ada) != 2 || ada[0].ID != third.ID || ada[1].ID != first.ID {
		t.Errorf("unexpected submitter listing %+v", ada)
	}

	none, err := f.tickets.ListTickets(ctx, TicketListFilter{SubmittedBy: ptr("ada")})
	if err != nil {
		t.Fatalf("list partial: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("submitter filter must be exact, got %d", len(none))
	}
}

func TestHistoryUnknownTicket(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.History(context.Background(), 77)
	if status := statusOf(t, err); status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
}
