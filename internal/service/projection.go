package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-api/pkg/errorutil"
)

// NameCache holds display names keyed by email. Registration fills it.
type NameCache interface {
	Get(ctx context.Context, email string) (string, bool, error)
	Set(ctx context.Context, email, name string) error
	Forget(ctx context.Context, email string) error
}

// Projector expands stored rows into their API shape. It never fails: a
// missing submitter falls back to the raw email and a bad screenshot
// encoding projects to an empty list. The name cache is only read.
type Projector struct {
	users  repository.UserRepository
	names  NameCache
	logger *zap.Logger
}

// NewProjector constructs the projector. names may be nil.
func NewProjector(users repository.UserRepository, names NameCache, logger *zap.Logger) *Projector {
	return &Projector{users: users, names: names, logger: logger}
}

// ProjectTicket builds the view for one ticket.
func (p *Projector) ProjectTicket(ctx context.Context, ticket *domain.Ticket) domain.TicketView {
	return ticketView(ticket, p.displayName(ctx, ticket.SubmittedBy))
}

// ProjectTickets builds views for a listing, resolving each submitter once.
func (p *Projector) ProjectTickets(ctx context.Context, tickets []domain.Ticket) []domain.TicketView {
	views := make([]domain.TicketView, 0, len(tickets))
	resolved := make(map[string]string)
	for i := range tickets {
		email := tickets[i].SubmittedBy
		name, ok := resolved[email]
		if !ok {
			name = p.displayName(ctx, email)
			resolved[email] = name
		}
		views = append(views, ticketView(&tickets[i], name))
	}
	return views
}

func (p *Projector) displayName(ctx context.Context, email string) string {
	if p.names != nil {
		name, ok, err := p.names.Get(ctx, email)
		if err != nil {
			p.logger.Warn("display name cache lookup failed", zap.String("email", email), zap.Error(err))
		} else if ok {
			return name
		}
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if !apperrors.IsNoRows(err) {
			p.logger.Warn("submitter lookup failed", zap.String("email", email), zap.Error(err))
		}
		return email
	}

	return user.DisplayName()
}

func ticketView(ticket *domain.Ticket, submitterName string) domain.TicketView {
	return domain.TicketView{
		ID:              ticket.ID,
		Title:           ticket.Title,
		Description:     ticket.Description,
		SubmittedBy:     ticket.SubmittedBy,
		SubmittedByName: submitterName,
		CCEmail:         nullableString(ticket.CCEmail),
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		Location:        nullableString(ticket.Location),
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		Archived:        ticket.Archived,
		Screenshots:     DecodeScreenshots(ticket.Screenshots),
		AssignedTo:      nullableString(ticket.AssignedTo),
	}
}

func taskView(task *domain.Task) domain.TaskView {
	return domain.TaskView{
		ID:            task.ID,
		Text:          task.Text,
		Completed:     task.Completed,
		Priority:      task.Priority,
		UserEmail:     task.UserEmail,
		AssignedTo:    nullableString(task.AssignedTo),
		ScreenshotURL: nullableString(task.ScreenshotURL),
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}
}

// DecodeScreenshots turns the stored screenshot column into a URL list.
//
//	NULL, "" or blank          -> []
//	JSON array                 -> its non-empty string elements
//	JSON string "url"          -> [url]
//	bare text (legacy column)  -> [text]
//	anything else              -> []
func DecodeScreenshots(raw *string) []string {
	urls := []string{}
	if raw == nil {
		return urls
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return urls
	}

	switch value[0] {
	case '[':
		var items []any
		if err := json.Unmarshal([]byte(value), &items); err != nil {
			return urls
		}
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				urls = append(urls, s)
			}
		}
		return urls
	case '"':
		var single string
		if err := json.Unmarshal([]byte(value), &single); err != nil || strings.TrimSpace(single) == "" {
			return urls
		}
		return append(urls, single)
	case '{':
		return urls
	}

	if value == "null" || json.Valid([]byte(value)) {
		// numbers, booleans and null are not URLs
		return urls
	}
	return append(urls, value)
}

// EncodeScreenshots serializes a URL list for storage. The result is never
// the JSON null literal.
func EncodeScreenshots(urls []string) string {
	if len(urls) == 0 {
		return "[]"
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func nullableString(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}
