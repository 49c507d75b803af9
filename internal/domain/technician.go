package domain

// Workload holds advisory counters used to rank technicians.
type Workload struct {
	AssignedCount   int
	InProgressCount int
}

// Technician models a user able to work tickets.
type Technician struct {
	ID             string
	Name           string
	Email          string
	Specialization *TicketType
	Active         bool
	Workload       Workload
}

// Specializes reports whether the technician's specialization matches t.
func (t *Technician) Specializes(ticketType TicketType) bool {
	return t.Specialization != nil && *t.Specialization == ticketType
}
