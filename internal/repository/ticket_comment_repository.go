package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketCommentRepository persists the comment side channel of tickets.
type TicketCommentRepository interface {
	Create(ctx context.Context, comment *domain.TicketComment) error
	ListByTicket(ctx context.Context, ticketID string, kinds []domain.CommentKind) ([]domain.TicketComment, error)
}

type ticketCommentRepository struct {
	db DB
}

// NewTicketCommentRepository builds repository.
func NewTicketCommentRepository(db DB) TicketCommentRepository {
	return &ticketCommentRepository{db: db}
}

func (r *ticketCommentRepository) Create(ctx context.Context, comment *domain.TicketComment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, author_role, kind, body)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.AuthorRole,
		comment.Kind,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt)
}

// ListByTicket returns comments oldest first. An empty kinds slice returns every kind.
func (r *ticketCommentRepository) ListByTicket(ctx context.Context, ticketID string, kinds []domain.CommentKind) ([]domain.TicketComment, error) {
	args := []any{ticketID}
	query := `
        SELECT id, ticket_id, author_id, author_role, kind, body, created_at
        FROM ticket_comments WHERE ticket_id=$1`
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, kind := range kinds {
			args = append(args, kind)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" AND kind IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketComment
	for rows.Next() {
		var comment domain.TicketComment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.AuthorRole,
			&comment.Kind,
			&comment.Body,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
