package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-api/internal/config"
	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/events"
	"github.com/supportdesk/helpdesk-api/internal/mail"
	"github.com/supportdesk/helpdesk-api/internal/repository"
	"github.com/supportdesk/helpdesk-api/internal/worker"
)

// NotificationQueue accepts notification jobs without blocking.
type NotificationQueue interface {
	Enqueue(job worker.Job) bool
}

// NotificationService turns domain events into queued notification jobs.
type NotificationService struct {
	dispatcher     events.Dispatcher
	queue          NotificationQueue
	logger         *zap.Logger
	supportAddress string
	company        string
	now            Clock
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue NotificationQueue, logger *zap.Logger, mailCfg config.MailConfig, cfg config.NotificationConfig, now Clock) *NotificationService {
	if now == nil {
		now = SystemClock
	}
	return &NotificationService{
		dispatcher:     dispatcher,
		queue:          queue,
		logger:         logger,
		supportAddress: strings.TrimSpace(mailCfg.SupportAddress),
		company:        cfg.CompanyName,
		now:            now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketPatched, n.handleTicketPatched)
	n.dispatcher.Subscribe(events.EventTicketCanceled, n.handleTicketCanceled)
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	params := n.ticketParams(&payload.Ticket)

	if n.supportAddress != "" {
		n.enqueue(n.supportAddress, mail.TemplateTicketCreatedSupport, params)
	} else {
		n.logger.Warn("support address not configured; skipping support notification", zap.Int64("ticket_id", event.TicketID))
	}
	n.enqueue(payload.Ticket.SubmittedBy, mail.TemplateTicketCreatedSubmitter, params)
	if payload.Ticket.CCEmail != nil && strings.TrimSpace(*payload.Ticket.CCEmail) != "" {
		n.enqueue(*payload.Ticket.CCEmail, mail.TemplateTicketCreatedCC, params)
	}
	return nil
}

// handleTicketPatched looks only at the new status value present in the diff,
// so re-setting Resolved on a resolved ticket still notifies.
func (n *NotificationService) handleTicketPatched(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketPatchedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	change, ok := payload.Diff.Lookup(string(domain.TicketFieldStatus))
	if !ok {
		return nil
	}
	status, ok := change.New.(domain.TicketStatus)
	if !ok || !status.NotifiesSubmitter() {
		return nil
	}
	n.enqueue(payload.New.SubmittedBy, mail.TemplateTicketStatus, n.ticketParams(&payload.New))
	return nil
}

func (n *NotificationService) handleTicketCanceled(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCanceledPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.enqueue(payload.Ticket.SubmittedBy, mail.TemplateTicketCanceled, n.ticketParams(&payload.Ticket))
	return nil
}

func (n *NotificationService) handleUserRegistered(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if !payload.SendWelcomeEmail {
		return nil
	}
	n.enqueue(payload.Email, mail.TemplateWelcome, map[string]any{
		"FirstName": payload.FirstName,
		"Email":     payload.Email,
		"Year":      n.now().Year(),
		"Company":   n.company,
	})
	return nil
}

func (n *NotificationService) enqueue(to, template string, params map[string]any) {
	if n.queue == nil {
		return
	}
	if !n.queue.Enqueue(worker.Job{To: to, Template: template, Params: params}) {
		n.logger.Warn("notification not queued",
			zap.String("recipient", to),
			zap.String("template", template))
	}
}

func (n *NotificationService) ticketParams(ticket *domain.Ticket) map[string]any {
	location := ""
	if ticket.Location != nil {
		location = *ticket.Location
	}
	return map[string]any{
		"TicketID":    ticket.ID,
		"Title":       ticket.Title,
		"Description": ticket.Description,
		"Status":      string(ticket.Status),
		"Priority":    string(ticket.Priority),
		"Location":    location,
		"SubmittedBy": ticket.SubmittedBy,
		"Year":        n.now().Year(),
		"Company":     n.company,
	}
}

// HistoryRecorder appends every committed ticket diff to the audit trail.
type HistoryRecorder struct {
	history repository.TicketHistoryRepository
	logger  *zap.Logger
}

// NewHistoryRecorder creates the recorder.
func NewHistoryRecorder(history repository.TicketHistoryRepository, logger *zap.Logger) *HistoryRecorder {
	return &HistoryRecorder{history: history, logger: logger}
}

// RegisterHandlers subscribes to ticket patches.
func (h *HistoryRecorder) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketPatched, h.handleTicketPatched)
}

func (h *HistoryRecorder) handleTicketPatched(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketPatchedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	entries := make([]domain.TicketHistory, 0, len(payload.Diff))
	for _, change := range payload.Diff {
		entries = append(entries, domain.TicketHistory{
			TicketID:  event.TicketID,
			Field:     domain.TicketField(change.Field),
			OldValue:  formatValue(change.Old),
			NewValue:  formatValue(change.New),
			CreatedAt: payload.New.UpdatedAt,
		})
	}
	if err := h.history.Append(ctx, entries); err != nil {
		return fmt.Errorf("append ticket history: %w", err)
	}
	h.logger.Debug("ticket history recorded", zap.Int64("ticket_id", event.TicketID), zap.Int("fields", len(entries)))
	return nil
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if value {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}
