package domain

import (
	"errors"
	"fmt"
	"strings"
)

// TicketField enumerates the ticket columns a partial update may touch.
type TicketField string

const (
	TicketFieldTitle       TicketField = "title"
	TicketFieldDescription TicketField = "description"
	TicketFieldStatus      TicketField = "status"
	TicketFieldPriority    TicketField = "priority"
	TicketFieldAssignedTo  TicketField = "assigned_to"
	TicketFieldArchived    TicketField = "archived"
)

var ticketColumns = map[TicketField]string{
	TicketFieldTitle:       "title",
	TicketFieldDescription: "description",
	TicketFieldStatus:      "status",
	TicketFieldPriority:    "priority",
	TicketFieldAssignedTo:  "assigned_to",
	TicketFieldArchived:    "archived",
}

// Column resolves the storage column for f.
func (f TicketField) Column() (string, error) {
	col, ok := ticketColumns[f]
	if !ok {
		return "", fmt.Errorf("ticket field %q is not patchable", string(f))
	}
	return col, nil
}

// TaskField enumerates the task columns a partial update may touch.
type TaskField string

const (
	TaskFieldText       TaskField = "text"
	TaskFieldPriority   TaskField = "priority"
	TaskFieldAssignedTo TaskField = "assigned_to"
	TaskFieldCompleted  TaskField = "completed"
)

var taskColumns = map[TaskField]string{
	TaskFieldText:       "text",
	TaskFieldPriority:   "priority",
	TaskFieldAssignedTo: "assigned_to",
	TaskFieldCompleted:  "completed",
}

// Column resolves the storage column for f.
func (f TaskField) Column() (string, error) {
	col, ok := taskColumns[f]
	if !ok {
		return "", fmt.Errorf("task field %q is not patchable", string(f))
	}
	return col, nil
}

// FieldChange is one field assignment carried by a patch. Old is nil when the
// stored value was NULL.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// Diff lists the fields a patch assigned, in a fixed field order. A field that
// was explicitly re-set to its current value still appears.
type Diff []FieldChange

// Lookup returns the change recorded for field.
func (d Diff) Lookup(field string) (FieldChange, bool) {
	for _, change := range d {
		if change.Field == field {
			return change, true
		}
	}
	return FieldChange{}, false
}

// Empty reports whether the patch carried no applicable field.
func (d Diff) Empty() bool {
	return len(d) == 0
}

// ErrBlankField is returned when a required text field is patched to whitespace.
var ErrBlankField = errors.New("field must not be blank")

// TicketPatch is a sparse ticket update. Nil fields are left untouched, so a
// patch can never clear a column.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *TicketStatus
	Priority    *Priority
	AssignedTo  *string
	Archived    *bool
}

// Diff validates p and pairs each present field with its current value.
func (p TicketPatch) Diff(current *Ticket) (Diff, error) {
	var diff Diff
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, fieldError(TicketFieldTitle)
		}
		diff = append(diff, FieldChange{Field: string(TicketFieldTitle), Old: current.Title, New: title})
	}
	if p.Description != nil {
		diff = append(diff, FieldChange{Field: string(TicketFieldDescription), Old: current.Description, New: *p.Description})
	}
	if p.Status != nil {
		status := TicketStatus(strings.TrimSpace(string(*p.Status)))
		if status == "" {
			return nil, fieldError(TicketFieldStatus)
		}
		diff = append(diff, FieldChange{Field: string(TicketFieldStatus), Old: current.Status, New: status})
	}
	if p.Priority != nil {
		priority := Priority(strings.TrimSpace(string(*p.Priority)))
		if priority == "" {
			return nil, fieldError(TicketFieldPriority)
		}
		diff = append(diff, FieldChange{Field: string(TicketFieldPriority), Old: current.Priority, New: priority})
	}
	if p.AssignedTo != nil {
		diff = append(diff, FieldChange{Field: string(TicketFieldAssignedTo), Old: derefOrNil(current.AssignedTo), New: strings.TrimSpace(*p.AssignedTo)})
	}
	if p.Archived != nil {
		diff = append(diff, FieldChange{Field: string(TicketFieldArchived), Old: current.Archived, New: *p.Archived})
	}
	return diff, nil
}

// TaskPatch is a sparse task update with the same nil-means-untouched rule.
type TaskPatch struct {
	Text       *string
	Priority   *Priority
	AssignedTo *string
	Completed  *bool
}

// Diff validates p and pairs each present field with its current value.
func (p TaskPatch) Diff(current *Task) (Diff, error) {
	var diff Diff
	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		if text == "" {
			return nil, fieldError(TaskFieldText)
		}
		diff = append(diff, FieldChange{Field: string(TaskFieldText), Old: current.Text, New: text})
	}
	if p.Priority != nil {
		priority := Priority(strings.TrimSpace(string(*p.Priority)))
		if priority == "" {
			return nil, fieldError(TaskFieldPriority)
		}
		diff = append(diff, FieldChange{Field: string(TaskFieldPriority), Old: current.Priority, New: priority})
	}
	if p.AssignedTo != nil {
		diff = append(diff, FieldChange{Field: string(TaskFieldAssignedTo), Old: derefOrNil(current.AssignedTo), New: strings.TrimSpace(*p.AssignedTo)})
	}
	if p.Completed != nil {
		diff = append(diff, FieldChange{Field: string(TaskFieldCompleted), Old: current.Completed, New: *p.Completed})
	}
	return diff, nil
}

// FieldError wraps ErrBlankField with the offending field name.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, ErrBlankField)
}

func (e *FieldError) Unwrap() error {
	return ErrBlankField
}

func fieldError[F ~string](field F) error {
	return &FieldError{Field: string(field)}
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
