package dto

import (
	"time"

	"github.com/supportdesk/helpdesk-api/internal/domain"
)

// CreateTicketRequest is the multipart form of POST /tickets. Files arrive
// separately under the screenshots field.
type CreateTicketRequest struct {
	Title       string  `form:"title"`
	Description string  `form:"description"`
	SubmittedBy string  `form:"submitted_by"`
	Location    *string `form:"location"`
	Status      string  `form:"status"`
	Priority    string  `form:"priority"`
	CCEmail     *string `form:"cc_email"`
}

// PatchTicketRequest is a sparse update. A null or missing field is ignored.
type PatchTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	AssignedTo  *string `json:"assigned_to"`
	Archived    *bool   `json:"archived"`
}

// ToPatch converts the request into the domain patch.
func (r PatchTicketRequest) ToPatch() domain.TicketPatch {
	patch := domain.TicketPatch{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		Archived:    r.Archived,
	}
	if r.Status != nil {
		status := domain.TicketStatus(*r.Status)
		patch.Status = &status
	}
	if r.Priority != nil {
		priority := domain.Priority(*r.Priority)
		patch.Priority = &priority
	}
	return patch
}

// TicketHistoryEntry is one audit row.
type TicketHistoryEntry struct {
	ID        int64     `json:"id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicketHistory maps domain history for responses.
func NewTicketHistory(entries []domain.TicketHistory) []TicketHistoryEntry {
	out := make([]TicketHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, TicketHistoryEntry{
			ID:        entry.ID,
			Field:     string(entry.Field),
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}

// CreateTaskRequest is the multipart form of POST /tasks.
type CreateTaskRequest struct {
	Text       string  `form:"text"`
	UserEmail  string  `form:"user_email"`
	Priority   string  `form:"priority"`
	AssignedTo *string `form:"assigned_to"`
}

// PatchTaskRequest is a sparse task update.
type PatchTaskRequest struct {
	Text       *string `json:"text"`
	Priority   *string `json:"priority"`
	AssignedTo *string `json:"assigned_to"`
	Completed  *bool   `json:"completed"`
}

// ToPatch converts the request into the domain patch.
func (r PatchTaskRequest) ToPatch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Text:       r.Text,
		AssignedTo: r.AssignedTo,
		Completed:  r.Completed,
	}
	if r.Priority != nil {
		priority := domain.Priority(*r.Priority)
		patch.Priority = &priority
	}
	return patch
}

// SetCompletedRequest is the body of PUT /tasks/:id/completed.
type SetCompletedRequest struct {
	Completed *bool `json:"completed"`
}
