package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func sampleTicket() *domain.Ticket {
	tech := "tech-1"
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Ticket{
		ID:           "ticket-1",
		Number:       7,
		Title:        "Printer jam",
		Description:  "Third floor printer",
		Type:         domain.TicketTypeHardware,
		Priority:     domain.TicketPriorityMedium,
		Status:       domain.TicketStatusAssigned,
		CreatorID:    "user-1",
		TechnicianID: &tech,
		CreatedAt:    now,
		AssignedAt:   &now,
		UpdatedAt:    now,
		Version:      3,
	}
}

func TestTicketRepository_SaveTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("matching version", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewTicketRepository(mock)

		mock.ExpectExec(`UPDATE tickets SET .* WHERE id=\$12 AND version=\$13`).
			WithArgs(anyArgs(13)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SaveTicket(ctx, sampleTicket(), 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewTicketRepository(mock)

		mock.ExpectExec(`UPDATE tickets SET`).
			WithArgs(anyArgs(13)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT 1 FROM tickets WHERE id=\$1`).
			WithArgs("ticket-1").
			WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(1))

		err := repo.SaveTicket(ctx, sampleTicket(), 2)
		assert.True(t, errors.Is(err, ErrVersionConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing ticket", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewTicketRepository(mock)

		mock.ExpectExec(`UPDATE tickets SET`).
			WithArgs(anyArgs(13)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT 1 FROM tickets WHERE id=\$1`).
			WithArgs("ticket-1").
			WillReturnError(pgx.ErrNoRows)

		err := repo.SaveTicket(ctx, sampleTicket(), 2)
		assert.True(t, errors.Is(err, pgx.ErrNoRows))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTicketRepository_GetTicket(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTicketRepository(mock)
	want := sampleTicket()
	category := "cat-1"

	rows := mock.NewRows([]string{
		"id", "number", "title", "description", "type", "priority", "status", "creator_id", "technician_id",
		"created_at", "assigned_at", "accepted_at", "resolution_summary", "feedback_score", "feedback_comment",
		"closed_at", "updated_at", "version", "category_id",
	}).AddRow(
		want.ID, want.Number, want.Title, want.Description, want.Type, want.Priority, want.Status,
		want.CreatorID, want.TechnicianID, want.CreatedAt, want.AssignedAt, (*time.Time)(nil),
		(*string)(nil), (*int)(nil), (*string)(nil), (*time.Time)(nil), want.UpdatedAt, want.Version,
		&category,
	)
	mock.ExpectQuery(`SELECT id, number, title .* FROM tickets WHERE id=\$1`).
		WithArgs("ticket-1").
		WillReturnRows(rows)

	got, err := repo.GetTicket(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, "tech-1", *got.TechnicianID)
	assert.Equal(t, int64(3), got.Version)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, "cat-1", *got.CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_CreateStoresCategory(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTicketRepository(mock)
	category := "cat-1"
	ticket := &domain.Ticket{
		Title:       "Printer jam",
		Description: "Third floor printer",
		Type:        domain.TicketTypeHardware,
		CategoryID:  &category,
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusPendingAnalysis,
		CreatorID:   "user-1",
	}
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO tickets \(title, description, type, priority, status, creator_id, category_id\)`).
		WithArgs("Printer jam", "Third floor printer", domain.TicketTypeHardware, domain.TicketPriorityMedium,
			domain.TicketStatusPendingAnalysis, "user-1", &category).
		WillReturnRows(mock.NewRows([]string{"id", "number", "created_at", "updated_at", "version"}).
			AddRow("ticket-9", int64(9), now, now, int64(1)))

	require.NoError(t, repo.Create(context.Background(), ticket))
	assert.Equal(t, "ticket-9", ticket.ID)
	assert.Equal(t, int64(9), ticket.Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_ListTicketsBuildsFilter(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTicketRepository(mock)
	creator := "user-1"
	term := "printer"

	mock.ExpectQuery(`WHERE 1=1 AND creator_id=\$1 AND status IN \(\$2,\$3\) AND \(LOWER\(title\) LIKE \$4 OR LOWER\(description\) LIKE \$4\) ORDER BY updated_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("user-1", domain.TicketStatusAssigned, domain.TicketStatusInProgress, "%printer%").
		WillReturnRows(mock.NewRows([]string{"id"}))

	tickets, err := repo.ListTickets(context.Background(), TicketFilter{
		CreatorID:  &creator,
		Statuses:   []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusInProgress},
		SearchTerm: &term,
	})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_ListTicketsClampsPage(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTicketRepository(mock)

	mock.ExpectQuery(`ORDER BY updated_at DESC LIMIT 100 OFFSET 0$`).
		WillReturnRows(mock.NewRows([]string{"id"}))

	_, err := repo.ListTickets(context.Background(), TicketFilter{Limit: 1_000_000, Offset: -5})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultPageSize, 0},
		{-3, -1, DefaultPageSize, 0},
		{50, 10, 50, 10},
		{MaxPageSize, 0, MaxPageSize, 0},
		{MaxPageSize + 1, 0, MaxPageSize, 0},
		{1_000_000, 7, MaxPageSize, 7},
	}
	for _, tc := range cases {
		limit, offset := NormalizePage(tc.limit, tc.offset)
		assert.Equal(t, tc.wantLimit, limit, "limit for %d", tc.limit)
		assert.Equal(t, tc.wantOffset, offset, "offset for %d", tc.offset)
	}
}

func TestTicketRepository_StatusReport(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTicketRepository(mock)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM tickets GROUP BY status`).
		WillReturnRows(mock.NewRows([]string{"status", "count"}).
			AddRow(domain.TicketStatusClosed, 4).
			AddRow(domain.TicketStatusAssigned, 2))
	mock.ExpectQuery(`SELECT COUNT\(feedback_score\)`).
		WillReturnRows(mock.NewRows([]string{"count", "avg"}).AddRow(3, 4.5))

	report, err := repo.StatusReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Counts[domain.TicketStatusClosed])
	assert.Equal(t, 2, report.Counts[domain.TicketStatusAssigned])
	assert.Equal(t, 0, report.Counts[domain.TicketStatusRejected])
	assert.Equal(t, 3, report.FeedbackCount)
	assert.InDelta(t, 4.5, report.AverageFeedback, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
