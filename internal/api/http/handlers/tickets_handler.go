package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler serves ticket endpoints for every role. Scoping happens in the service.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignments: assignments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets?status=a,b&priority=..&type=..&category_id=..&technician_id=..&q=..&limit=&offset=
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter := service.TicketListFilter{}
	filter.Limit, filter.Offset = repository.NormalizePage(queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	for _, s := range queryList(c, "status") {
		status := domain.TicketStatus(s)
		if !status.Valid() {
			return apperrors.NewInvalidInput("unknown status filter", map[string]any{"status": s})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, p := range queryList(c, "priority") {
		priority := domain.TicketPriority(p)
		if !priority.Valid() {
			return apperrors.NewInvalidInput("unknown priority filter", map[string]any{"priority": p})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	for _, tp := range queryList(c, "type") {
		filter.Types = append(filter.Types, domain.TicketType(tp))
	}
	if tech := c.Query("technician_id"); tech != "" {
		filter.TechnicianID = &tech
	}
	if category := c.Query("category_id"); category != "" {
		filter.CategoryID = &category
	}
	if q := c.Query("q"); q != "" {
		filter.SearchTerm = &q
	}

	tickets, err := h.tickets.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{"limit": filter.Limit, "offset": filter.Offset, "count": len(items)},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	view, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.NewTicketResponse(view.Ticket)
	resp.AllowedTransitions = view.AllowedTransitions
	return c.JSON(fiber.Map{"data": resp})
}

// ApplyTransition POST /tickets/:id/transitions/:name.
func (h *TicketsHandler) ApplyTransition(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	transition := lifecycle.Transition(c.Params("name"))
	payload := transitionPayload(transition, req)

	res, err := h.tickets.ApplyTransition(c.UserContext(), actor, c.Params("id"), transition, payload)
	if err != nil {
		return err
	}
	ticket := dto.NewTicketResponse(res.Ticket)
	ticket.AllowedTransitions = lifecycle.AllowedFor(actor, res.Ticket)
	return c.JSON(fiber.Map{"data": dto.TransitionResponse{
		Ticket:         ticket,
		PreviousStatus: res.PreviousStatus,
		NewStatus:      res.NewStatus,
		SideEffects:    res.SideEffects,
	}})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.ListHistory(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewTicketHistoryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	comments, err := h.tickets.ListComments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), req.Kind, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// Candidates GET /tickets/:id/candidates.
func (h *TicketsHandler) Candidates(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	candidates, err := h.assignments.Candidates(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CandidateResponse, 0, len(candidates))
	for i := range candidates {
		items = append(items, dto.CandidateResponse{
			Rank:                candidates[i].Rank,
			SpecializationMatch: candidates[i].SpecializationMatch,
			Technician:          dto.NewTechnicianResponse(&candidates[i].Technician),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// transitionPayload builds the payload variant the named transition expects. Missing fields
// are left for the engine to reject so legality and authorization are still checked first.
func transitionPayload(t lifecycle.Transition, req dto.TransitionRequest) lifecycle.Payload {
	switch t {
	case lifecycle.TransitionAssign:
		return lifecycle.AssignPayload{TechnicianID: req.TechnicianID}
	case lifecycle.TransitionReassign:
		return lifecycle.ReassignPayload{TechnicianID: req.TechnicianID, Reason: req.Reason}
	case lifecycle.TransitionRejectAssignment:
		return lifecycle.RejectAssignmentPayload{Reason: req.Reason}
	case lifecycle.TransitionMarkResolved:
		return lifecycle.ResolvePayload{Summary: req.Summary}
	case lifecycle.TransitionValidate:
		if req.Accepted == nil {
			return lifecycle.NoPayload{}
		}
		return lifecycle.ValidatePayload{Accepted: *req.Accepted}
	case lifecycle.TransitionReopen:
		return lifecycle.ReopenPayload{TechnicianID: req.TechnicianID, Reason: req.Reason}
	case lifecycle.TransitionSubmitFeedback:
		score := 0
		if req.Score != nil {
			score = *req.Score
		}
		return lifecycle.FeedbackPayload{Score: score, Comment: req.Comment}
	}
	return lifecycle.NoPayload{}
}
