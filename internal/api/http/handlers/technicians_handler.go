package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TechniciansHandler serves the technician directory and the status dashboard.
type TechniciansHandler struct {
	assignments *service.AssignmentService
	tickets     *service.TicketService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(assignments *service.AssignmentService, tickets *service.TicketService) *TechniciansHandler {
	return &TechniciansHandler{assignments: assignments, tickets: tickets}
}

// ListTechnicians GET /technicians.
func (h *TechniciansHandler) ListTechnicians(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	techs, err := h.assignments.ListTechnicians(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(techs))
	for i := range techs {
		items = append(items, dto.NewTechnicianResponse(&techs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// StatusReport GET /reports/status.
func (h *TechniciansHandler) StatusReport(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	report, err := h.tickets.StatusReport(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusReportResponse(report)})
}
