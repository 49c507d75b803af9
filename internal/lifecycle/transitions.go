package lifecycle

import (
	"sort"

	"github.com/looplab/fsm"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Transition names a validated lifecycle operation.
type Transition string

const (
	TransitionAssign           Transition = "assign"
	TransitionEscalate         Transition = "escalate"
	TransitionReassign         Transition = "reassign"
	TransitionAcceptAssignment Transition = "accept_assignment"
	TransitionRejectAssignment Transition = "reject_assignment"
	TransitionTakeCharge       Transition = "take_charge"
	TransitionMarkResolved     Transition = "mark_resolved"
	TransitionValidate         Transition = "validate"
	TransitionReopen           Transition = "reopen"
	TransitionClose            Transition = "close"
	TransitionSubmitFeedback   Transition = "submit_feedback"
)

// rule describes one row of the lifecycle table. An empty target keeps the current status.
type rule struct {
	from   []domain.TicketStatus
	target domain.TicketStatus
	roles  []domain.Role
}

var staffRoles = []domain.Role{domain.RoleSecretary, domain.RoleDSIAdmin}

// validate targets closed here; a rejected validation is redirected by the engine.
var rules = map[Transition]rule{
	TransitionAssign: {
		from:   []domain.TicketStatus{domain.TicketStatusPendingAnalysis},
		target: domain.TicketStatusAssigned,
		roles:  staffRoles,
	},
	TransitionEscalate: {
		from:  []domain.TicketStatus{domain.TicketStatusPendingAnalysis, domain.TicketStatusAssigned, domain.TicketStatusInProgress},
		roles: staffRoles,
	},
	TransitionReassign: {
		from:   []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusInProgress},
		target: domain.TicketStatusAssigned,
		roles:  staffRoles,
	},
	TransitionAcceptAssignment: {
		from:  []domain.TicketStatus{domain.TicketStatusAssigned},
		roles: []domain.Role{domain.RoleTechnician},
	},
	TransitionRejectAssignment: {
		from:   []domain.TicketStatus{domain.TicketStatusAssigned},
		target: domain.TicketStatusPendingAnalysis,
		roles:  []domain.Role{domain.RoleTechnician},
	},
	TransitionTakeCharge: {
		from:   []domain.TicketStatus{domain.TicketStatusAssigned},
		target: domain.TicketStatusInProgress,
		roles:  []domain.Role{domain.RoleTechnician},
	},
	TransitionMarkResolved: {
		from:   []domain.TicketStatus{domain.TicketStatusInProgress},
		target: domain.TicketStatusResolved,
		roles:  []domain.Role{domain.RoleTechnician},
	},
	TransitionValidate: {
		from:   []domain.TicketStatus{domain.TicketStatusResolved},
		target: domain.TicketStatusClosed,
		roles:  []domain.Role{domain.RoleEndUser},
	},
	TransitionReopen: {
		from:   []domain.TicketStatus{domain.TicketStatusRejected},
		target: domain.TicketStatusAssigned,
		roles:  staffRoles,
	},
	TransitionClose: {
		from:   []domain.TicketStatus{domain.TicketStatusResolved},
		target: domain.TicketStatusClosed,
		roles:  staffRoles,
	},
	TransitionSubmitFeedback: {
		from:  []domain.TicketStatus{domain.TicketStatusClosed},
		roles: []domain.Role{domain.RoleEndUser},
	},
}

// machines holds one read-only FSM per status, used only to answer legality questions.
var machines = buildMachines()

func buildMachines() map[domain.TicketStatus]*fsm.FSM {
	events := fsm.Events{}
	for name, r := range rules {
		for _, from := range r.from {
			dst := r.target
			if dst == "" {
				dst = from
			}
			events = append(events, fsm.EventDesc{
				Name: string(name),
				Src:  []string{string(from)},
				Dst:  string(dst),
			})
		}
	}

	out := make(map[domain.TicketStatus]*fsm.FSM, len(domain.AllTicketStatuses))
	for _, status := range domain.AllTicketStatuses {
		out[status] = fsm.NewFSM(string(status), events, fsm.Callbacks{})
	}
	return out
}

// Known reports whether t names a lifecycle transition.
func Known(t Transition) bool {
	_, ok := rules[t]
	return ok
}

// CanApply reports whether t is legal from status, regardless of who asks.
func CanApply(status domain.TicketStatus, t Transition) bool {
	m, ok := machines[status]
	if !ok {
		return false
	}
	return m.Can(string(t))
}

// Available lists the transitions legal from status, sorted by name.
func Available(status domain.TicketStatus) []Transition {
	m, ok := machines[status]
	if !ok {
		return nil
	}
	names := m.AvailableTransitions()
	sort.Strings(names)
	out := make([]Transition, 0, len(names))
	for _, name := range names {
		out = append(out, Transition(name))
	}
	return out
}

// AllowedFor lists the transitions actor may currently request on ticket.
func AllowedFor(actor domain.Actor, ticket *domain.Ticket) []Transition {
	var out []Transition
	for _, t := range Available(ticket.Status) {
		if Authorize(actor, ticket, t) {
			out = append(out, t)
		}
	}
	return out
}

func targetStatus(current domain.TicketStatus, t Transition) domain.TicketStatus {
	if r := rules[t]; r.target != "" {
		return r.target
	}
	return current
}
