package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AssignmentService exposes the technician directory and the advisory candidate ranking
// used by secretaries and DSI administrators when assigning tickets.
type AssignmentService struct {
	tickets   repository.TicketRepository
	directory lifecycle.TechnicianDirectory
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	Directory  lifecycle.TechnicianDirectory
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:   deps.TicketRepo,
		directory: deps.Directory,
	}
}

// ListTechnicians returns every technician with live workload counters.
func (s *AssignmentService) ListTechnicians(ctx context.Context, actor domain.Actor) ([]domain.Technician, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	techs, err := s.directory.ListTechnicians(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("technician directory", err)
	}
	return techs, nil
}

// Candidates ranks active technicians for a ticket. The ranking never assigns anyone.
func (s *AssignmentService) Candidates(ctx context.Context, actor domain.Actor, ticketID string) ([]lifecycle.Candidate, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	techs, err := s.directory.ListTechnicians(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("technician directory", err)
	}
	return lifecycle.RankCandidates(ticket, techs), nil
}

func requireStaff(actor domain.Actor) error {
	if !actor.Role.IsStaff() {
		return apperrors.NewUnauthorized("only secretaries and DSI administrators can do this")
	}
	return nil
}
