package domain

import "time"

// TicketCategory narrows a ticket type, e.g. "Printer" under hardware. Only active categories
// whose type matches the ticket's can be picked at creation.
type TicketCategory struct {
	ID          string
	Name        string
	Description string
	Type        TicketType
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
