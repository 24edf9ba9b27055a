package handlers

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/helpdesk-api/internal/api/dto"
	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/service"
	"github.com/supportdesk/helpdesk-api/internal/storage"
	apperrors "github.com/supportdesk/helpdesk-api/pkg/errorutil"
)

// screenshotFields are the multipart keys accepted for ticket attachments.
var screenshotFields = []string{"screenshots", "screenshots[]"}

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.SubmittedBy) == "" {
		return apperrors.NewValidationError("title and submitted_by required", nil)
	}

	files, err := multipartFiles(c, screenshotFields...)
	if err != nil {
		return err
	}

	view, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		SubmittedBy: req.SubmittedBy,
		Location:    req.Location,
		Status:      domain.TicketStatus(req.Status),
		Priority:    domain.Priority(req.Priority),
		CCEmail:     req.CCEmail,
	}, storage.FromFileHeaders(files))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// ListTickets GET /tickets?user_email=&archived=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketListFilter{}
	if email := strings.TrimSpace(c.Query("user_email")); email != "" {
		filter.SubmittedBy = &email
	}
	if raw := strings.TrimSpace(c.Query("archived")); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewValidationError("archived must be a boolean", map[string]any{"archived": raw})
		}
		filter.Archived = archived
	}

	views, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(views)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// PatchTicket PATCH /tickets/:id.
func (h *TicketsHandler) PatchTicket(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.PatchTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	view, err := h.service.PatchTicket(c.UserContext(), id, req.ToPatch())
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// CancelTicket POST /tickets/:id/cancel.
func (h *TicketsHandler) CancelTicket(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	view, err := h.service.CancelTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketHistory(entries))
}

func pathID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"id": raw})
	}
	return id, nil
}

// multipartFiles collects uploads under any of fields. Non-multipart bodies
// carry no files.
func multipartFiles(c *fiber.Ctx, fields ...string) ([]*multipart.FileHeader, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart form", nil)
	}
	var files []*multipart.FileHeader
	for _, field := range fields {
		files = append(files, form.File[field]...)
	}
	return files, nil
}
