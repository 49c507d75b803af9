package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	Type            *domain.TicketType
	IncludeInactive bool
}

// TicketCategoryRepository manages ticket category persistence.
type TicketCategoryRepository interface {
	Create(ctx context.Context, category *domain.TicketCategory) error
	Update(ctx context.Context, category *domain.TicketCategory) error
	GetByID(ctx context.Context, id string) (*domain.TicketCategory, error)
	List(ctx context.Context, filter CategoryFilter) ([]domain.TicketCategory, error)
}

type ticketCategoryRepository struct {
	db DB
}

// NewTicketCategoryRepository builds the repository.
func NewTicketCategoryRepository(db DB) TicketCategoryRepository {
	return &ticketCategoryRepository{db: db}
}

const categoryColumns = `id, name, description, type, is_active, created_at, updated_at`

func (r *ticketCategoryRepository) Create(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        INSERT INTO ticket_categories (name, description, type, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.Type,
		category.Active,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *ticketCategoryRepository) Update(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        UPDATE ticket_categories SET name=$1, description=$2, type=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.db.Exec(ctx, query,
		category.Name,
		category.Description,
		category.Type,
		category.Active,
		category.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketCategoryRepository) GetByID(ctx context.Context, id string) (*domain.TicketCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM ticket_categories WHERE id=$1`
	return scanCategory(r.db.QueryRow(ctx, query, id))
}

func (r *ticketCategoryRepository) List(ctx context.Context, filter CategoryFilter) ([]domain.TicketCategory, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}
	if !filter.IncludeInactive {
		clauses = append(clauses, "is_active = TRUE")
	}
	query := fmt.Sprintf(`SELECT %s FROM ticket_categories WHERE %s ORDER BY type ASC, name ASC`,
		categoryColumns, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketCategory
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *category)
	}
	return result, rows.Err()
}

func scanCategory(row pgx.Row) (*domain.TicketCategory, error) {
	var category domain.TicketCategory
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.Type,
		&category.Active,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}
