package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestTicketCategoryRepository_ListByType(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTicketCategoryRepository(mock)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	hardware := domain.TicketTypeHardware

	mock.ExpectQuery(`FROM ticket_categories WHERE 1=1 AND type=\$1 AND is_active = TRUE ORDER BY type ASC, name ASC`).
		WithArgs(hardware).
		WillReturnRows(mock.NewRows([]string{"id", "name", "description", "type", "is_active", "created_at", "updated_at"}).
			AddRow("cat-1", "Printer", "Printers and scanners", hardware, true, now, now))

	categories, err := repo.List(context.Background(), CategoryFilter{Type: &hardware})
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Printer", categories[0].Name)
	assert.Equal(t, domain.TicketTypeHardware, categories[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCategoryRepository_ListAll(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTicketCategoryRepository(mock)

	mock.ExpectQuery(`FROM ticket_categories WHERE 1=1 ORDER BY type ASC, name ASC`).
		WillReturnRows(mock.NewRows([]string{"id"}))

	categories, err := repo.List(context.Background(), CategoryFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Empty(t, categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCategoryRepository_CreateAndUpdate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTicketCategoryRepository(mock)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO ticket_categories \(name, description, type, is_active\)`).
		WithArgs("VPN", "", domain.TicketTypeSoftware, true).
		WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("cat-2", now, now))
	mock.ExpectExec(`UPDATE ticket_categories SET name=\$1, description=\$2, type=\$3, is_active=\$4`).
		WithArgs("VPN", "", domain.TicketTypeSoftware, false, "cat-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	category := &domain.TicketCategory{Name: "VPN", Type: domain.TicketTypeSoftware, Active: true}
	require.NoError(t, repo.Create(context.Background(), category))
	assert.Equal(t, "cat-2", category.ID)

	category.Active = false
	require.NoError(t, repo.Update(context.Background(), category))
	assert.NoError(t, mock.ExpectationsWereMet())
}
