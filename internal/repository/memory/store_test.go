package memory

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func TestStore_TicketVersioning(t *testing.T) {
	ctx := context.Background()
	tickets := NewStore().Tickets()

	ticket := &domain.Ticket{
		Title:     "VPN down",
		Type:      domain.TicketTypeSoftware,
		Priority:  domain.TicketPriorityMedium,
		Status:    domain.TicketStatusPendingAnalysis,
		CreatorID: "user-1",
	}
	require.NoError(t, tickets.Create(ctx, ticket))
	assert.Equal(t, int64(1), ticket.Number)
	assert.Equal(t, int64(1), ticket.Version)

	next := ticket.Clone()
	next.Priority = domain.TicketPriorityHigh
	next.Version = 2
	require.NoError(t, tickets.SaveTicket(ctx, next, 1))

	stale := ticket.Clone()
	stale.Version = 2
	assert.ErrorIs(t, tickets.SaveTicket(ctx, stale, 1), repository.ErrVersionConflict)

	missing := ticket.Clone()
	missing.ID = "nope"
	assert.ErrorIs(t, tickets.SaveTicket(ctx, missing, 1), pgx.ErrNoRows)

	got, err := tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, got.Priority)

	got.Title = "mutated"
	again, err := tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "VPN down", again.Title, "reads are copies")
}

func TestStore_ListTicketsFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tickets := store.Tickets()

	for _, title := range []string{"Printer jam", "Mail quota", "Printer toner"} {
		require.NoError(t, tickets.Create(ctx, &domain.Ticket{
			Title:     title,
			Type:      domain.TicketTypeHardware,
			Priority:  domain.TicketPriorityLow,
			Status:    domain.TicketStatusPendingAnalysis,
			CreatorID: "user-1",
		}))
	}
	require.NoError(t, tickets.Create(ctx, &domain.Ticket{
		Title:     "Other user",
		Status:    domain.TicketStatusPendingAnalysis,
		CreatorID: "user-2",
	}))

	creator := "user-1"
	term := "PRINTER"
	list, err := tickets.ListTickets(ctx, repository.TicketFilter{CreatorID: &creator, SearchTerm: &term})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	page, err := tickets.ListTickets(ctx, repository.TicketFilter{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestStore_TechnicianWorkload(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	specialty := domain.TicketTypeHardware

	tech := &domain.User{Name: "Bob", Email: "bob@example.com", Role: domain.RoleTechnician, Specialization: &specialty, Active: true}
	require.NoError(t, store.Users().Create(ctx, tech))
	require.NoError(t, store.Users().Create(ctx, &domain.User{Name: "Eve", Email: "eve@example.com", Role: domain.RoleEndUser, Active: true}))

	for _, status := range []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusResolved} {
		ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusPendingAnalysis, CreatorID: "user-1"}
		require.NoError(t, store.Tickets().Create(ctx, ticket))
		next := ticket.Clone()
		next.Status = status
		next.TechnicianID = &tech.ID
		next.Version = 2
		require.NoError(t, store.Tickets().SaveTicket(ctx, next, 1))
	}

	got, err := store.Technicians().GetTechnician(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Workload{AssignedCount: 2, InProgressCount: 1}, got.Workload)

	list, err := store.Technicians().ListTechnicians(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = store.Users().GetByEmail(ctx, "BOB@example.com")
	assert.NoError(t, err)
	assert.Error(t, store.Users().Create(ctx, &domain.User{Email: "bob@example.com"}))
}

func TestStore_EmailConfig(t *testing.T) {
	ctx := context.Background()
	cfg := NewStore().EmailConfig()

	_, err := cfg.GetSettings(ctx)
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	require.NoError(t, cfg.SaveRule(ctx, &domain.NotificationRule{Event: "ticket_closed", Active: false}))
	rule, err := cfg.GetRule(ctx, "ticket_closed")
	require.NoError(t, err)
	assert.False(t, rule.Active)

	tpl := &domain.EmailTemplate{Name: "closed", Event: "ticket_closed", Subject: "Closed", Active: true}
	require.NoError(t, cfg.CreateTemplate(ctx, tpl))
	require.NoError(t, cfg.DeleteTemplate(ctx, tpl.ID))
	assert.ErrorIs(t, cfg.DeleteTemplate(ctx, tpl.ID), pgx.ErrNoRows)
}

func TestStore_CatalogAndCategoryFilter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	hardware := domain.TicketTypeHardware

	printer := &domain.TicketCategory{Name: "Printer", Type: hardware, Active: true}
	require.NoError(t, store.Categories().Create(ctx, printer))
	require.NoError(t, store.Categories().Create(ctx, &domain.TicketCategory{Name: "Fax", Type: hardware, Active: false}))
	require.NoError(t, store.Categories().Create(ctx, &domain.TicketCategory{Name: "VPN", Type: domain.TicketTypeSoftware, Active: true}))

	active, err := store.Categories().List(ctx, repository.CategoryFilter{Type: &hardware})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Printer", active[0].Name)

	all, err := store.Categories().List(ctx, repository.CategoryFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Tickets().Create(ctx, &domain.Ticket{Title: "Jam", Type: hardware, CategoryID: &printer.ID, CreatorID: "user-1"}))
	require.NoError(t, store.Tickets().Create(ctx, &domain.Ticket{Title: "Other", Type: hardware, CreatorID: "user-1"}))
	filtered, err := store.Tickets().ListTickets(ctx, repository.TicketFilter{CategoryID: &printer.ID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Jam", filtered[0].Title)

	_, err = store.Departments().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	err = store.Departments().Update(ctx, &domain.Department{ID: "missing"})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestStore_ListPageIsClamped(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for i := 0; i < repository.MaxPageSize+5; i++ {
		require.NoError(t, store.Tickets().Create(ctx, &domain.Ticket{Title: "t", CreatorID: "user-1"}))
	}

	list, err := store.Tickets().ListTickets(ctx, repository.TicketFilter{Limit: 10_000})
	require.NoError(t, err)
	assert.Len(t, list, repository.MaxPageSize)
}
