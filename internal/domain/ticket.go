package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPendingAnalysis TicketStatus = "pending_analysis"
	TicketStatusAssigned        TicketStatus = "assigned"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusRejected        TicketStatus = "rejected"
)

// AllTicketStatuses lists statuses in lifecycle order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusPendingAnalysis,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusRejected,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range AllTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequiresTechnician reports whether a ticket in status s must carry a technician.
func (s TicketStatus) RequiresTechnician() bool {
	switch s {
	case TicketStatusAssigned, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency, ordered from lowest to highest.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

var priorityOrder = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range priorityOrder {
		if candidate == p {
			return true
		}
	}
	return false
}

// Raise returns the next priority level, capped at critical.
func (p TicketPriority) Raise() TicketPriority {
	for i, candidate := range priorityOrder {
		if candidate == p && i+1 < len(priorityOrder) {
			return priorityOrder[i+1]
		}
	}
	return TicketPriorityCritical
}

// TicketType classifies the request.
type TicketType string

const (
	TicketTypeHardware TicketType = "hardware"
	TicketTypeSoftware TicketType = "software"
)

// Valid reports whether t is a known ticket type.
func (t TicketType) Valid() bool {
	return t == TicketTypeHardware || t == TicketTypeSoftware
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                string
	Number            int64
	Title             string
	Description       string
	Type              TicketType
	CategoryID        *string
	Priority          TicketPriority
	Status            TicketStatus
	CreatorID         string
	TechnicianID      *string
	CreatedAt         time.Time
	AssignedAt        *time.Time
	AcceptedAt        *time.Time
	ResolutionSummary *string
	FeedbackScore     *int
	FeedbackComment   *string
	ClosedAt          *time.Time
	UpdatedAt         time.Time
	Version           int64
}

// DisplayNumber renders the sequential number shown to people.
func (t *Ticket) DisplayNumber() string {
	return fmt.Sprintf("#%d", t.Number)
}

// AssignedTo reports whether the ticket is currently assigned to technicianID.
func (t *Ticket) AssignedTo(technicianID string) bool {
	return t.TechnicianID != nil && *t.TechnicianID == technicianID
}

// Clone returns a deep copy so a candidate mutation never leaks into the original.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.CategoryID = cloneString(t.CategoryID)
	cp.TechnicianID = cloneString(t.TechnicianID)
	cp.AssignedAt = cloneTime(t.AssignedAt)
	cp.AcceptedAt = cloneTime(t.AcceptedAt)
	cp.ResolutionSummary = cloneString(t.ResolutionSummary)
	cp.FeedbackComment = cloneString(t.FeedbackComment)
	cp.ClosedAt = cloneTime(t.ClosedAt)
	if t.FeedbackScore != nil {
		score := *t.FeedbackScore
		cp.FeedbackScore = &score
	}
	return &cp
}

// CheckInvariants verifies the field/status invariants of the lifecycle.
func (t *Ticket) CheckInvariants() error {
	hasTechnician := t.TechnicianID != nil && *t.TechnicianID != ""
	if t.Status.RequiresTechnician() != hasTechnician {
		return fmt.Errorf("ticket %s: technician presence %t invalid for status %s", t.ID, hasTechnician, t.Status)
	}
	if t.FeedbackScore != nil && t.Status != TicketStatusClosed {
		return fmt.Errorf("ticket %s: feedback recorded while status is %s", t.ID, t.Status)
	}
	if (t.Status == TicketStatusResolved || t.Status == TicketStatusClosed) && t.ResolutionSummary == nil {
		return fmt.Errorf("ticket %s: status %s without resolution summary", t.ID, t.Status)
	}
	return nil
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	ts := *v
	return &ts
}
