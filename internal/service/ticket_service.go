package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows. Status changes always go through the engine.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.TicketCommentRepository
	history    repository.TicketHistoryRepository
	catalog    *CatalogService
	engine     *lifecycle.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.TicketCommentRepository
	HistoryRepo repository.TicketHistoryRepository
	Catalog     *CatalogService
	Engine      *lifecycle.Engine
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Type        domain.TicketType
	Priority    domain.TicketPriority
	CategoryID  *string
}

// TicketListFilter describes listing filters. Role scoping is applied on top.
type TicketListFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Types        []domain.TicketType
	CategoryID   *string
	TechnicianID *string
	SearchTerm   *string
	Limit        int
	Offset       int
}

// TicketView is a ticket with the transitions its viewer may request next.
type TicketView struct {
	Ticket             *domain.Ticket
	AllowedTransitions []lifecycle.Transition
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		catalog:    deps.Catalog,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreateTicket opens a ticket on behalf of an end user. It starts in pending_analysis.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Role != domain.RoleEndUser {
		return nil, apperrors.NewUnauthorized("only end users can open tickets")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewInvalidInput("title and description are required", map[string]any{"fields": []string{"title", "description"}})
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewInvalidInput("type must be hardware or software", map[string]any{"field": "type"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewInvalidInput("unknown priority", map[string]any{"field": "priority", "value": priority})
	}
	categoryID := trimmedID(input.CategoryID)
	if categoryID != nil {
		if s.catalog == nil {
			return nil, apperrors.NewInvalidInput("ticket categories are not configured", map[string]any{"field": "category_id"})
		}
		if _, err := s.catalog.CategoryFor(ctx, *categoryID, input.Type); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Type:        input.Type,
		CategoryID:  categoryID,
		Priority:    priority,
		Status:      domain.TicketStatusPendingAnalysis,
		CreatorID:   actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewDependencyUnavailable("ticket store", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.NotificationPayload{
			Ticket:    *ticket.Clone(),
			Recipient: domain.Recipient{Role: domain.RoleSecretary},
		},
	})
	return ticket, nil
}

// GetTicket returns a ticket the actor may see, with the transitions they may request.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketView, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return &TicketView{Ticket: ticket, AllowedTransitions: lifecycle.AllowedFor(actor, ticket)}, nil
}

// ListTickets returns tickets scoped by role: end users see their own, technicians their
// assignments, secretaries and DSI administrators everything.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		Types:        filter.Types,
		CategoryID:   filter.CategoryID,
		TechnicianID: filter.TechnicianID,
		SearchTerm:   filter.SearchTerm,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	switch actor.Role {
	case domain.RoleEndUser:
		repoFilter.CreatorID = &actor.ID
	case domain.RoleTechnician:
		repoFilter.TechnicianID = &actor.ID
	case domain.RoleSecretary, domain.RoleDSIAdmin:
	default:
		return nil, apperrors.NewUnauthorized("unknown role")
	}
	repoFilter.Limit, repoFilter.Offset = repository.NormalizePage(repoFilter.Limit, repoFilter.Offset)

	tickets, err := s.tickets.ListTickets(ctx, repoFilter)
	if err != nil {
		if apperrors.IsInvalidReference(err) {
			return nil, apperrors.NewInvalidInput("technician_id or category_id is not a valid id", nil)
		}
		return nil, apperrors.NewDependencyUnavailable("ticket store", err)
	}
	return tickets, nil
}

// ApplyTransition forwards a transition request to the lifecycle engine.
func (s *TicketService) ApplyTransition(ctx context.Context, actor domain.Actor, ticketID string, transition lifecycle.Transition, payload lifecycle.Payload) (*lifecycle.Result, error) {
	res, err := s.engine.Apply(ctx, lifecycle.Request{
		TicketID:   ticketID,
		Transition: transition,
		Actor:      actor,
		Payload:    payload,
	})
	if err != nil {
		s.logger.Debug("transition refused",
			zap.String("ticket_id", ticketID),
			zap.String("transition", string(transition)),
			zap.String("actor_role", string(actor.Role)),
			zap.Error(err))
		return nil, err
	}
	s.logger.Info("ticket transitioned",
		zap.String("ticket_id", ticketID),
		zap.String("transition", string(transition)),
		zap.String("from", string(res.PreviousStatus)),
		zap.String("to", string(res.NewStatus)))
	return res, nil
}

// AddComment posts on the ticket side channel. Comments never change ticket status.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID string, kind domain.CommentKind, body string) (*domain.TicketComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewInvalidInput("comment body is required", map[string]any{"field": "body"})
	}
	if !kind.Valid() {
		return nil, apperrors.NewInvalidInput("unknown comment kind", map[string]any{"field": "kind", "value": kind})
	}
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanComment(actor, ticket, kind) {
		return nil, apperrors.NewUnauthorized("you cannot post this kind of comment on this ticket")
	}

	comment := &domain.TicketComment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Kind:       kind,
		Body:       body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.NewDependencyUnavailable("comment store", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			Kind:        comment.Kind,
			AuthorRole:  comment.AuthorRole,
			BodyPreview: stringPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

// ListComments returns the comments the actor may read. Creators never see technical notes.
func (s *TicketService) ListComments(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketComment, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	var kinds []domain.CommentKind
	if actor.Role == domain.RoleEndUser {
		kinds = []domain.CommentKind{domain.CommentKindInfoRequest, domain.CommentKindReply}
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, kinds)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("comment store", err)
	}
	return comments, nil
}

// ListHistory returns the audit trail of a visible ticket.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketHistory, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("history store", err)
	}
	return history, nil
}

// StatusReport aggregates ticket counts for the DSI dashboard.
func (s *TicketService) StatusReport(ctx context.Context, actor domain.Actor) (*repository.StatusReport, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewUnauthorized("reports are restricted to secretaries and DSI administrators")
	}
	report, err := s.tickets.StatusReport(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("ticket store", err)
	}
	return report, nil
}

// GetVisibleTicket loads a ticket after checking read access.
func (s *TicketService) GetVisibleTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.loadVisible(ctx, actor, ticketID)
}

func (s *TicketService) loadVisible(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanView(actor, ticket) {
		return nil, apperrors.NewUnauthorized("you cannot access this ticket")
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

type ticketGetter interface {
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
}

func loadTicket(ctx context.Context, tickets ticketGetter, ticketID string) (*domain.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperrors.NewInvalidInput("ticket id is required", nil)
	}
	ticket, err := tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewDependencyUnavailable("ticket store", err)
	}
	return ticket, nil
}

// stringPreview truncates on rune boundaries so the result stays valid UTF-8.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
