package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ErrVersionConflict is returned by SaveTicket when the stored version moved on.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatorID    *string
	TechnicianID *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Types        []domain.TicketType
	CategoryID   *string
	SearchTerm   *string
	Limit        int
	Offset       int
}

// StatusReport aggregates ticket counts for dashboards.
type StatusReport struct {
	Counts          map[domain.TicketStatus]int
	FeedbackCount   int
	AverageFeedback float64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	SaveTicket(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error
	ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	StatusReport(ctx context.Context) (*StatusReport, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, number, title, description, type, priority, status, creator_id, technician_id,
               created_at, assigned_at, accepted_at, resolution_summary, feedback_score, feedback_comment,
               closed_at, updated_at, version, category_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, type, priority, status, creator_id, category_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, number, created_at, updated_at, version`
	return r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.CreatorID,
		ticket.CategoryID,
	).Scan(&ticket.ID, &ticket.Number, &ticket.CreatedAt, &ticket.UpdatedAt, &ticket.Version)
}

// SaveTicket writes every mutable field and bumps the version, but only if the stored
// version still equals expectedVersion.
func (r *ticketRepository) SaveTicket(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	const query = `
        UPDATE tickets SET priority=$1, status=$2, technician_id=$3, assigned_at=$4, accepted_at=$5,
            resolution_summary=$6, feedback_score=$7, feedback_comment=$8, closed_at=$9,
            updated_at=$10, version=$11
        WHERE id=$12 AND version=$13`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Priority,
		ticket.Status,
		ticket.TechnicianID,
		ticket.AssignedAt,
		ticket.AcceptedAt,
		ticket.ResolutionSummary,
		ticket.FeedbackScore,
		ticket.FeedbackComment,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.Version,
		ticket.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var exists int
	if err := r.db.QueryRow(ctx, `SELECT 1 FROM tickets WHERE id=$1`, ticket.ID).Scan(&exists); err != nil {
		return err
	}
	return ErrVersionConflict
}

func (r *ticketRepository) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, tp := range filter.Types {
			args = append(args, tp)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) StatusReport(ctx context.Context) (*StatusReport, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := &StatusReport{Counts: make(map[domain.TicketStatus]int, len(domain.AllTicketStatuses))}
	for _, status := range domain.AllTicketStatuses {
		report.Counts[status] = 0
	}
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		report.Counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const feedbackQuery = `SELECT COUNT(feedback_score), COALESCE(AVG(feedback_score), 0)::float8 FROM tickets`
	if err := r.db.QueryRow(ctx, feedbackQuery).Scan(&report.FeedbackCount, &report.AverageFeedback); err != nil {
		return nil, err
	}
	return report, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Title,
		&ticket.Description,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.TechnicianID,
		&ticket.CreatedAt,
		&ticket.AssignedAt,
		&ticket.AcceptedAt,
		&ticket.ResolutionSummary,
		&ticket.FeedbackScore,
		&ticket.FeedbackComment,
		&ticket.ClosedAt,
		&ticket.UpdatedAt,
		&ticket.Version,
		&ticket.CategoryID,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Page size bounds applied to every list query.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps limit to [1, MaxPageSize], defaulting to DefaultPageSize, and offset to >= 0.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
