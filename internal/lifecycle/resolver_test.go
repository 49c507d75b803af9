package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestRankCandidates(t *testing.T) {
	hardware := domain.TicketTypeHardware
	software := domain.TicketTypeSoftware
	ticket := &domain.Ticket{Type: domain.TicketTypeHardware}

	techs := []domain.Technician{
		{ID: "t1", Name: "Zoe", Active: true, Specialization: &software, Workload: domain.Workload{AssignedCount: 1}},
		{ID: "t2", Name: "Yann", Active: true, Specialization: &hardware, Workload: domain.Workload{AssignedCount: 1}},
		{ID: "t3", Name: "Xavier", Active: true, Workload: domain.Workload{AssignedCount: 0}},
		{ID: "t4", Name: "Alice", Active: false, Workload: domain.Workload{AssignedCount: 0}},
		{ID: "t5", Name: "Bruno", Active: true, Workload: domain.Workload{AssignedCount: 1}},
	}

	got := RankCandidates(ticket, techs)
	require.Len(t, got, 4)

	var ids []string
	for i, c := range got {
		ids = append(ids, c.Technician.ID)
		assert.Equal(t, i+1, c.Rank)
	}
	assert.Equal(t, []string{"t3", "t2", "t5", "t1"}, ids)
	assert.True(t, got[1].SpecializationMatch)
	assert.False(t, got[2].SpecializationMatch)
}

func TestRankCandidatesEmpty(t *testing.T) {
	assert.Empty(t, RankCandidates(&domain.Ticket{}, nil))
}
