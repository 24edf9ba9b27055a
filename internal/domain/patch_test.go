package domain

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestTicketPatchDiffSkipsNilFields(t *testing.T) {
	current := &Ticket{Title: "Printer", Status: TicketStatusOpen, Priority: PriorityHigh}

	diff, err := TicketPatch{}.Diff(current)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !diff.Empty() {
		t.Fatalf("expected empty diff, got %+v", diff)
	}
}

func TestTicketPatchDiffKeepsSameValueAssignments(t *testing.T) {
	current := &Ticket{Title: "Printer", Status: TicketStatusResolved, Priority: PriorityLow}
	status := TicketStatusResolved

	diff, err := TicketPatch{Status: &status}.Diff(current)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	change, ok := diff.Lookup(string(TicketFieldStatus))
	if !ok {
		t.Fatal("expected status entry for a same-value assignment")
	}
	if change.Old != TicketStatusResolved || change.New != TicketStatusResolved {
		t.Errorf("unexpected change %+v", change)
	}
}

func TestTicketPatchDiffOrderAndValues(t *testing.T) {
	assignee := "tech@msi.test"
	current := &Ticket{Title: "Old", Description: "d", Status: TicketStatusOpen, Priority: PriorityLow}
	archived := true
	priority := PriorityHigh

	diff, err := TicketPatch{
		Title:      strPtr("  New title "),
		Priority:   &priority,
		AssignedTo: &assignee,
		Archived:   &archived,
	}.Diff(current)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	want := []string{"title", "priority", "assigned_to", "archived"}
	if len(diff) != len(want) {
		t.Fatalf("expected %d changes, got %d", len(want), len(diff))
	}
	for i, field := range want {
		if diff[i].Field != field {
			t.Errorf("position %d: expected %s, got %s", i, field, diff[i].Field)
		}
	}
	if diff[0].New != "New title" {
		t.Errorf("title should be trimmed, got %q", diff[0].New)
	}
	if diff[2].Old != nil {
		t.Errorf("unassigned ticket should report nil old value, got %v", diff[2].Old)
	}
}

func TestTicketPatchDiffRejectsBlankStatus(t *testing.T) {
	blank := TicketStatus("  ")
	_, err := TicketPatch{Status: &blank}.Diff(&Ticket{})
	if !errors.Is(err, ErrBlankField) {
		t.Fatalf("expected ErrBlankField, got %v", err)
	}
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "status" {
		t.Errorf("expected status field error, got %v", err)
	}
}

func TestTaskPatchDiff(t *testing.T) {
	done := true
	current := &Task{Text: "call vendor", Priority: PriorityMedium}

	diff, err := TaskPatch{Completed: &done}.Diff(current)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(diff) != 1 || diff[0].Field != "completed" || diff[0].New != true {
		t.Fatalf("unexpected diff %+v", diff)
	}
	if _, err := (TaskPatch{Text: strPtr("")}).Diff(current); err == nil {
		t.Error("expected blank text to be rejected")
	}
}

func TestFieldColumnsAreClosed(t *testing.T) {
	if _, err := TicketField("submitted_by").Column(); err == nil {
		t.Error("submitted_by must not be patchable")
	}
	if _, err := TicketField("id; DROP TABLE tickets").Column(); err == nil {
		t.Error("arbitrary column names must be rejected")
	}
	if col, err := TaskFieldCompleted.Column(); err != nil || col != "completed" {
		t.Errorf("unexpected column %q err %v", col, err)
	}
}

func TestDisplayName(t *testing.T) {
	u := &User{FirstName: " Ada ", LastName: "Lovelace", Email: "ada@msi.test"}
	if got := u.DisplayName(); got != "Ada Lovelace" {
		t.Errorf("got %q", got)
	}
	if got := (&User{Email: "x@msi.test"}).DisplayName(); got != "x@msi.test" {
		t.Errorf("expected email fallback, got %q", got)
	}
}

func TestNotifiesSubmitter(t *testing.T) {
	for status, want := range map[TicketStatus]bool{
		TicketStatusResolved:   true,
		TicketStatusClosed:     true,
		TicketStatusOpen:       false,
		TicketStatusInProgress: false,
		TicketStatusCanceled:   false,
		"resolved":             false,
	} {
		if got := status.NotifiesSubmitter(); got != want {
			t.Errorf("%q: got %v want %v", status, got, want)
		}
	}
}
