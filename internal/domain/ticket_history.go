package domain

import "time"

// TicketHistory is an immutable audit trail entry for one committed transition.
type TicketHistory struct {
	ID            string
	TicketID      string
	Transition    string
	ActorID       string
	ActorRole     Role
	OldStatus     TicketStatus
	NewStatus     TicketStatus
	OldTechnician *string
	NewTechnician *string
	OldPriority   TicketPriority
	NewPriority   TicketPriority
	Reason        string
	CreatedAt     time.Time
}
