package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"required"`
	Type        domain.TicketType     `json:"type" validate:"required,oneof=hardware software"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	CategoryID  *string               `json:"category_id"`
}

// TransitionRequest carries every payload field any transition may use. Which ones are
// read depends on the transition named in the path.
type TransitionRequest struct {
	TechnicianID string `json:"technician_id"`
	Reason       string `json:"reason" validate:"max=1000"`
	Summary      string `json:"resolution_summary"`
	Accepted     *bool  `json:"accepted"`
	Score        *int   `json:"score"`
	Comment      string `json:"comment" validate:"max=2000"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Kind domain.CommentKind `json:"kind" validate:"required,oneof=technical info_request reply"`
	Body string             `json:"body" validate:"required,max=4000"`
}

// TicketResponse renders a ticket.
type TicketResponse struct {
	ID                 string                 `json:"id"`
	Number             string                 `json:"number"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Type               domain.TicketType      `json:"type"`
	CategoryID         *string                `json:"category_id,omitempty"`
	Priority           domain.TicketPriority  `json:"priority"`
	Status             domain.TicketStatus    `json:"status"`
	CreatorID          string                 `json:"creator_id"`
	TechnicianID       *string                `json:"technician_id"`
	AssignedAt         *time.Time             `json:"assigned_at,omitempty"`
	AcceptedAt         *time.Time             `json:"accepted_at,omitempty"`
	ResolutionSummary  *string                `json:"resolution_summary,omitempty"`
	FeedbackScore      *int                   `json:"feedback_score,omitempty"`
	FeedbackComment    *string                `json:"feedback_comment,omitempty"`
	ClosedAt           *time.Time             `json:"closed_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	Version            int64                  `json:"version"`
	AllowedTransitions []lifecycle.Transition `json:"allowed_transitions,omitempty"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                t.ID,
		Number:            t.DisplayNumber(),
		Title:             t.Title,
		Description:       t.Description,
		Type:              t.Type,
		CategoryID:        t.CategoryID,
		Priority:          t.Priority,
		Status:            t.Status,
		CreatorID:         t.CreatorID,
		TechnicianID:      t.TechnicianID,
		AssignedAt:        t.AssignedAt,
		AcceptedAt:        t.AcceptedAt,
		ResolutionSummary: t.ResolutionSummary,
		FeedbackScore:     t.FeedbackScore,
		FeedbackComment:   t.FeedbackComment,
		ClosedAt:          t.ClosedAt,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		Version:           t.Version,
	}
}

// TransitionResponse reports a committed transition.
type TransitionResponse struct {
	Ticket         TicketResponse         `json:"ticket"`
	PreviousStatus domain.TicketStatus    `json:"previous_status"`
	NewStatus      domain.TicketStatus    `json:"new_status"`
	SideEffects    []lifecycle.SideEffect `json:"side_effects"`
}

// CommentResponse renders a comment.
type CommentResponse struct {
	ID         string             `json:"id"`
	AuthorID   string             `json:"author_id"`
	AuthorRole domain.Role        `json:"author_role"`
	Kind       domain.CommentKind `json:"kind"`
	Body       string             `json:"body"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(c *domain.TicketComment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		AuthorID:   c.AuthorID,
		AuthorRole: c.AuthorRole,
		Kind:       c.Kind,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
	}
}

// TicketHistoryResponse renders an audit entry.
type TicketHistoryResponse struct {
	ID            string                `json:"id"`
	Transition    string                `json:"transition"`
	ActorID       string                `json:"actor_id"`
	ActorRole     domain.Role           `json:"actor_role"`
	OldStatus     domain.TicketStatus   `json:"old_status"`
	NewStatus     domain.TicketStatus   `json:"new_status"`
	OldTechnician *string               `json:"old_technician_id,omitempty"`
	NewTechnician *string               `json:"new_technician_id,omitempty"`
	OldPriority   domain.TicketPriority `json:"old_priority"`
	NewPriority   domain.TicketPriority `json:"new_priority"`
	Reason        string                `json:"reason,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// NewTicketHistoryResponse maps a history entry.
func NewTicketHistoryResponse(h *domain.TicketHistory) TicketHistoryResponse {
	return TicketHistoryResponse{
		ID:            h.ID,
		Transition:    h.Transition,
		ActorID:       h.ActorID,
		ActorRole:     h.ActorRole,
		OldStatus:     h.OldStatus,
		NewStatus:     h.NewStatus,
		OldTechnician: h.OldTechnician,
		NewTechnician: h.NewTechnician,
		OldPriority:   h.OldPriority,
		NewPriority:   h.NewPriority,
		Reason:        h.Reason,
		CreatedAt:     h.CreatedAt,
	}
}

// CandidateResponse renders one ranked technician.
type CandidateResponse struct {
	Rank                int                `json:"rank"`
	SpecializationMatch bool               `json:"specialization_match"`
	Technician          TechnicianResponse `json:"technician"`
}

// StatusReportResponse renders the dashboard counters.
type StatusReportResponse struct {
	Counts          map[domain.TicketStatus]int `json:"counts"`
	Total           int                         `json:"total"`
	FeedbackCount   int                         `json:"feedback_count"`
	AverageFeedback float64                     `json:"average_feedback"`
}

// NewStatusReportResponse maps the repository report.
func NewStatusReportResponse(r *repository.StatusReport) StatusReportResponse {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return StatusReportResponse{
		Counts:          r.Counts,
		Total:           total,
		FeedbackCount:   r.FeedbackCount,
		AverageFeedback: r.AverageFeedback,
	}
}
