package events

import (
	"time"

	"github.com/supportdesk/helpdesk-api/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketPatched  EventType = "ticket_patched"
	EventTicketCanceled EventType = "ticket_canceled"
	EventUserRegistered EventType = "user_registered"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload carries the freshly inserted ticket.
type TicketCreatedPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// TicketPatchedPayload carries the field-level diff of a committed patch
// along with the row before and after it.
type TicketPatchedPayload struct {
	Old  domain.Ticket `json:"old"`
	New  domain.Ticket `json:"new"`
	Diff domain.Diff   `json:"diff"`
}

// TicketCanceledPayload carries the archived ticket.
type TicketCanceledPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// UserRegisteredPayload describes a new account. The password hash is never
// part of an event.
type UserRegisteredPayload struct {
	Email            string `json:"email"`
	FirstName        string `json:"first_name"`
	DisplayName      string `json:"display_name"`
	SendWelcomeEmail bool   `json:"send_welcome_email"`
}
