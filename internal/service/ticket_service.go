package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/events"
	"github.com/supportdesk/helpdesk-api/internal/repository"
	"github.com/supportdesk/helpdesk-api/internal/storage"
	apperrors "github.com/supportdesk/helpdesk-api/pkg/errorutil"
)

var errAttachmentsDisabled = errors.New("attachment storage not configured")

// AttachmentStore persists uploaded files and hands back their public URLs.
type AttachmentStore interface {
	SaveAll(ctx context.Context, uploads []storage.Upload) ([]string, error)
	Discard(urls []string)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	history     repository.TicketHistoryRepository
	engine      *PatchEngine
	projector   *Projector
	attachments AttachmentStore
	dispatcher  events.Dispatcher
	now         Clock
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Engine      *PatchEngine
	Projector   *Projector
	Attachments AttachmentStore
	Dispatcher  events.Dispatcher
	Clock       Clock
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	SubmittedBy string
	Location    *string
	Status      domain.TicketStatus
	Priority    domain.Priority
	CCEmail     *string
}

// TicketListFilter narrows ticket listings. Archived selects archived tickets
// instead of live ones.
type TicketListFilter struct {
	SubmittedBy *string
	Archived    bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Clock
	if now == nil {
		now = SystemClock
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		history:     deps.HistoryRepo,
		engine:      deps.Engine,
		projector:   deps.Projector,
		attachments: deps.Attachments,
		dispatcher:  deps.Dispatcher,
		now:         now,
		logger:      logger,
	}
}

// CreateTicket stores the uploads, inserts the ticket and returns its view.
// Files are written before the row so a ticket never references a file that
// failed to persist.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput, uploads []storage.Upload) (*domain.TicketView, error) {
	ticket, err := newTicket(input)
	if err != nil {
		return nil, err
	}

	urls := []string{}
	if len(uploads) > 0 {
		if s.attachments == nil {
			return nil, apperrors.NewInternalError(errAttachmentsDisabled)
		}
		urls, err = s.attachments.SaveAll(ctx, uploads)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	encoded := EncodeScreenshots(urls)
	ticket.Screenshots = &encoded

	now := s.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if len(urls) > 0 {
			s.logger.Warn("ticket insert failed; discarding stored attachments",
				zap.Strings("urls", urls), zap.Error(err))
			s.attachments.Discard(urls)
		}
		return nil, err
	}

	s.publish(ctx, events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{Ticket: *ticket})

	view := s.projector.ProjectTicket(ctx, ticket)
	return &view, nil
}

// GetTicket returns one projected ticket.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ticket", id)
	}
	view := s.projector.ProjectTicket(ctx, ticket)
	return &view, nil
}

// ListTickets returns projected tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.TicketView, error) {
	var submittedBy *string
	if filter.SubmittedBy != nil {
		if trimmed := strings.TrimSpace(*filter.SubmittedBy); trimmed != "" {
			submittedBy = &trimmed
		}
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{SubmittedBy: submittedBy, Archived: filter.Archived})
	if err != nil {
		return nil, err
	}
	return s.projector.ProjectTickets(ctx, tickets), nil
}

// PatchTicket applies a sparse update. Subscribers only hear about patches that
// carried at least one field.
func (s *TicketService) PatchTicket(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.TicketView, error) {
	result, err := s.engine.PatchTicket(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if !result.Diff.Empty() {
		s.publish(ctx, events.EventTicketPatched, id, events.TicketPatchedPayload{
			Old:  *result.Old,
			New:  *result.New,
			Diff: result.Diff,
		})
	}
	view := s.projector.ProjectTicket(ctx, result.New)
	return &view, nil
}

// CancelTicket archives the ticket with status Canceled and notifies the
// submitter.
func (s *TicketService) CancelTicket(ctx context.Context, id int64) (*domain.TicketView, error) {
	status := domain.TicketStatusCanceled
	archived := true
	result, err := s.engine.PatchTicket(ctx, id, domain.TicketPatch{Status: &status, Archived: &archived})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketPatched, id, events.TicketPatchedPayload{
		Old:  *result.Old,
		New:  *result.New,
		Diff: result.Diff,
	})
	s.publish(ctx, events.EventTicketCanceled, id, events.TicketCanceledPayload{Ticket: *result.New})

	view := s.projector.ProjectTicket(ctx, result.New)
	return &view, nil
}

// History lists recorded field changes for a ticket, oldest first.
func (s *TicketService) History(ctx context.Context, id int64) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.GetByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "ticket", id)
	}
	entries, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return entries, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID int64, payload any) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

func newTicket(input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	submittedBy := strings.TrimSpace(input.SubmittedBy)
	if submittedBy == "" {
		return nil, apperrors.NewValidationError("submitted_by is required", map[string]any{"field": "submitted_by"})
	}

	status := domain.TicketStatus(strings.TrimSpace(string(input.Status)))
	if status == "" {
		status = domain.TicketStatusOpen
	}
	priority := domain.Priority(strings.TrimSpace(string(input.Priority)))
	if priority == "" {
		priority = domain.PriorityMedium
	}

	return &domain.Ticket{
		Title:       title,
		Description: input.Description,
		Location:    optionalText(input.Location),
		SubmittedBy: submittedBy,
		CCEmail:     optionalText(input.CCEmail),
		Status:      status,
		Priority:    priority,
	}, nil
}

// optionalText trims s and collapses blank input to nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
