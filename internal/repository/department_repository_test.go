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

func TestDepartmentRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewDepartmentRepository(mock)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO departments \(name, description, is_active\)`).
		WithArgs("Finance", "Accounts and payroll", true).
		WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("dept-1", now, now))

	dept := &domain.Department{Name: "Finance", Description: "Accounts and payroll", Active: true}
	require.NoError(t, repo.Create(context.Background(), dept))
	assert.Equal(t, "dept-1", dept.ID)
	assert.Equal(t, now, dept.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepository_UpdateMissing(t *testing.T) {
	mock := newMockPool(t)
	repo := NewDepartmentRepository(mock)

	mock.ExpectExec(`UPDATE departments SET name=\$1, description=\$2, is_active=\$3, updated_at=NOW\(\)\s+WHERE id=\$4`).
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &domain.Department{ID: "dept-1", Name: "Finance"})
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepository_List(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	columns := []string{"id", "name", "description", "is_active", "created_at", "updated_at"}

	t.Run("active only", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewDepartmentRepository(mock)
		mock.ExpectQuery(`FROM departments WHERE is_active = TRUE ORDER BY name ASC`).
			WillReturnRows(mock.NewRows(columns).AddRow("dept-1", "Finance", "", true, now, now))

		depts, err := repo.List(context.Background(), false)
		require.NoError(t, err)
		require.Len(t, depts, 1)
		assert.Equal(t, "Finance", depts[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("including inactive", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewDepartmentRepository(mock)
		mock.ExpectQuery(`FROM departments ORDER BY name ASC`).
			WillReturnRows(mock.NewRows(columns).
				AddRow("dept-1", "Finance", "", true, now, now).
				AddRow("dept-2", "Legal", "", false, now, now))

		depts, err := repo.List(context.Background(), true)
		require.NoError(t, err)
		require.Len(t, depts, 2)
		assert.False(t, depts[1].Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
