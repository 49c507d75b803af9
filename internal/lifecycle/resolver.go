package lifecycle

import (
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Candidate is a technician ranked for a ticket. Ranking is advisory; a person always picks.
type Candidate struct {
	Technician          domain.Technician
	SpecializationMatch bool
	Rank                int
}

// RankCandidates orders active technicians by ascending assigned-ticket count, preferring a
// specialization that matches the ticket type on ties, then by name for a stable order.
func RankCandidates(ticket *domain.Ticket, technicians []domain.Technician) []Candidate {
	out := make([]Candidate, 0, len(technicians))
	for _, tech := range technicians {
		if !tech.Active {
			continue
		}
		match := ticket != nil && tech.Specializes(ticket.Type)
		out = append(out, Candidate{Technician: tech, SpecializationMatch: match})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Technician.Workload.AssignedCount != b.Technician.Workload.AssignedCount {
			return a.Technician.Workload.AssignedCount < b.Technician.Workload.AssignedCount
		}
		if a.SpecializationMatch != b.SpecializationMatch {
			return a.SpecializationMatch
		}
		if a.Technician.Name != b.Technician.Name {
			return a.Technician.Name < b.Technician.Name
		}
		return a.Technician.ID < b.Technician.ID
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
