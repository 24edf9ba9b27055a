package domain

import "time"

// TicketStatus is an open-ended workflow label.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusCanceled   TicketStatus = "Canceled"
)

// NotifiesSubmitter reports whether entering this status emails the submitter.
func (s TicketStatus) NotifiesSubmitter() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Priority is an open-ended urgency label shared by tickets and tasks.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Ticket is the stored support request row.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Location    *string
	SubmittedBy string
	CCEmail     *string
	AssignedTo  *string
	Status      TicketStatus
	Priority    Priority
	Archived    bool
	// Screenshots holds the persisted encoding of the attachment URL list.
	Screenshots *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketHistory records one field change applied to a ticket.
type TicketHistory struct {
	ID        int64
	TicketID  int64
	Field     TicketField
	OldValue  string
	NewValue  string
	CreatedAt time.Time
}
