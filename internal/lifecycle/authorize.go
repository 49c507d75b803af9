package lifecycle

import "github.com/spec-kit/helpdesk-service/internal/domain"

// Authorize reports whether actor may request t on ticket. End users must own the ticket and
// technicians must be its current assignee; secretaries and DSI admins act on any ticket.
func Authorize(actor domain.Actor, ticket *domain.Ticket, t Transition) bool {
	r, ok := rules[t]
	if !ok || ticket == nil || actor.ID == "" {
		return false
	}
	if !roleAllowed(r.roles, actor.Role) {
		return false
	}
	switch actor.Role {
	case domain.RoleEndUser:
		return ticket.CreatorID == actor.ID
	case domain.RoleTechnician:
		return ticket.AssignedTo(actor.ID)
	case domain.RoleSecretary, domain.RoleDSIAdmin:
		return true
	}
	return false
}

// CanComment reports whether actor may post a comment of kind on ticket.
func CanComment(actor domain.Actor, ticket *domain.Ticket, kind domain.CommentKind) bool {
	switch actor.Role {
	case domain.RoleEndUser:
		return ticket.CreatorID == actor.ID && kind == domain.CommentKindReply
	case domain.RoleTechnician:
		return ticket.AssignedTo(actor.ID)
	case domain.RoleSecretary, domain.RoleDSIAdmin:
		return true
	}
	return false
}

// CanView reports whether actor may read ticket.
func CanView(actor domain.Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleEndUser:
		return ticket.CreatorID == actor.ID
	case domain.RoleTechnician:
		return ticket.AssignedTo(actor.ID)
	case domain.RoleSecretary, domain.RoleDSIAdmin:
		return true
	}
	return false
}

func roleAllowed(allowed []domain.Role, role domain.Role) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
