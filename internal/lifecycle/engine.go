package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/EagleChen/mapmutex"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketStore is the ticket persistence the engine reads from and commits to.
type TicketStore interface {
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	SaveTicket(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error
	ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
}

// TechnicianDirectory resolves technicians and their workload.
type TechnicianDirectory interface {
	GetTechnician(ctx context.Context, id string) (*domain.Technician, error)
	ListTechnicians(ctx context.Context) ([]domain.Technician, error)
}

// Notifier delivers notification side effects. Failures never roll back a transition.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent, ticket *domain.Ticket, recipient domain.Recipient) error
}

// HistoryRecorder stores the audit entry of a committed transition.
type HistoryRecorder interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
}

// Observer is told the outcome of every transition request.
type Observer interface {
	ObserveTransition(transition, outcome string)
}

// Request asks the engine to apply one transition on behalf of an actor.
type Request struct {
	TicketID   string
	Transition Transition
	Actor      domain.Actor
	Payload    Payload
}

// SideEffectKind classifies the consequences reported with a result.
type SideEffectKind string

const (
	SideEffectNotify     SideEffectKind = "notify"
	SideEffectSetField   SideEffectKind = "set_field"
	SideEffectClearField SideEffectKind = "clear_field"
)

// SideEffect is a non-status consequence of a committed transition.
type SideEffect struct {
	Kind      SideEffectKind           `json:"kind"`
	Event     domain.NotificationEvent `json:"event,omitempty"`
	Recipient *domain.Recipient        `json:"recipient,omitempty"`
	Field     string                   `json:"field,omitempty"`
}

// Result reports the committed ticket and what the transition implied.
type Result struct {
	Ticket         *domain.Ticket
	PreviousStatus domain.TicketStatus
	NewStatus      domain.TicketStatus
	SideEffects    []SideEffect
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	Store     TicketStore
	Directory TechnicianDirectory
	Notifier  Notifier
	History   HistoryRecorder
	Observer  Observer
	Logger    *zap.Logger
	Clock     func() time.Time
	Locks     *mapmutex.Mutex
}

// Engine owns ticket status and is the only code path that mutates it.
type Engine struct {
	store     TicketStore
	directory TechnicianDirectory
	notifier  Notifier
	history   HistoryRecorder
	observer  Observer
	logger    *zap.Logger
	now       func() time.Time
	locks     *mapmutex.Mutex
}

// NewEngine constructs the engine.
func NewEngine(deps Dependencies) *Engine {
	e := &Engine{
		store:     deps.Store,
		directory: deps.Directory,
		notifier:  deps.Notifier,
		history:   deps.History,
		observer:  deps.Observer,
		logger:    deps.Logger,
		now:       deps.Clock,
		locks:     deps.Locks,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.locks == nil {
		e.locks = mapmutex.NewMapMutex()
	}
	return e
}

// Apply validates and commits one transition. Checks run in a fixed order: legality for the
// current status, actor authorization, then inputs. Nothing is written unless all pass.
func (e *Engine) Apply(ctx context.Context, req Request) (*Result, error) {
	res, err := e.apply(ctx, req)
	e.observe(req.Transition, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) apply(ctx context.Context, req Request) (*Result, error) {
	if !Known(req.Transition) {
		return nil, apperrors.NewInvalidTransition("unknown transition", map[string]any{"transition": req.Transition})
	}
	if !e.locks.TryLock(req.TicketID) {
		return nil, apperrors.NewConcurrentModification("ticket is being updated by someone else, reload it and retry", map[string]any{"ticket_id": req.TicketID})
	}
	defer e.locks.Unlock(req.TicketID)

	current, err := e.loadTicket(ctx, req.TicketID)
	if err != nil {
		return nil, err
	}
	if !CanApply(current.Status, req.Transition) {
		return nil, apperrors.NewInvalidTransition(
			"cannot "+humanize(req.Transition)+" a ticket that is "+humanizeStatus(current.Status),
			map[string]any{"ticket_id": current.ID, "status": current.Status, "transition": req.Transition},
		)
	}
	if !Authorize(req.Actor, current, req.Transition) {
		return nil, apperrors.NewUnauthorized("you are not allowed to " + humanize(req.Transition) + " this ticket")
	}
	if err := checkPayload(req.Transition, req.Payload); err != nil {
		return nil, err
	}

	next := current.Clone()
	effects, reason, err := e.mutate(ctx, next, req)
	if err != nil {
		return nil, err
	}
	now := e.now()
	next.UpdatedAt = now
	next.Version = current.Version + 1
	if err := next.CheckInvariants(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if err := e.store.SaveTicket(ctx, next, current.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConcurrentModification("ticket changed since it was read, reload it and retry", map[string]any{"ticket_id": current.ID})
		}
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": current.ID})
		}
		return nil, apperrors.NewDependencyUnavailable("ticket store", err)
	}

	e.recordHistory(ctx, req, current, next, reason)
	e.dispatch(ctx, next, effects)

	return &Result{
		Ticket:         next,
		PreviousStatus: current.Status,
		NewStatus:      next.Status,
		SideEffects:    effects,
	}, nil
}

func (e *Engine) mutate(ctx context.Context, t *domain.Ticket, req Request) ([]SideEffect, string, error) {
	now := e.now()
	var effects []SideEffect
	reason := ""

	switch p := req.Payload.(type) {
	case AssignPayload:
		tech, err := e.requireTechnician(ctx, p.TechnicianID)
		if err != nil {
			return nil, "", err
		}
		assignTo(t, tech.ID, now)
		effects = append(effects,
			setField("technician_id"), setField("assigned_at"),
			notify(domain.EventTicketAssigned, domain.RoleTechnician, tech.ID))

	case ReassignPayload:
		if t.AssignedTo(p.TechnicianID) {
			return nil, "", apperrors.NewInvalidInput("the ticket is already assigned to this technician", map[string]any{"technician_id": p.TechnicianID})
		}
		tech, err := e.requireTechnician(ctx, p.TechnicianID)
		if err != nil {
			return nil, "", err
		}
		assignTo(t, tech.ID, now)
		reason = strings.TrimSpace(p.Reason)
		effects = append(effects,
			setField("technician_id"), setField("assigned_at"),
			notify(domain.EventTicketReassigned, domain.RoleTechnician, tech.ID))

	case RejectAssignmentPayload:
		unassign(t)
		reason = strings.TrimSpace(p.Reason)
		effects = append(effects,
			clearField("technician_id"), clearField("assigned_at"),
			notify(domain.EventAssignmentRejected, domain.RoleSecretary, ""),
			notify(domain.EventAssignmentRejected, domain.RoleDSIAdmin, ""))

	case ResolvePayload:
		summary := strings.TrimSpace(p.Summary)
		t.ResolutionSummary = &summary
		effects = append(effects,
			setField("resolution_summary"),
			notify(domain.EventTicketResolved, domain.RoleEndUser, t.CreatorID))

	case ValidatePayload:
		if p.Accepted {
			t.ClosedAt = &now
			effects = append(effects,
				setField("closed_at"),
				notify(domain.EventTicketClosed, domain.RoleTechnician, derefString(t.TechnicianID)))
			break
		}
		previous := derefString(t.TechnicianID)
		unassign(t)
		t.Status = domain.TicketStatusRejected
		effects = append(effects,
			clearField("technician_id"), clearField("assigned_at"),
			notify(domain.EventResolutionRejected, domain.RoleTechnician, previous),
			notify(domain.EventResolutionRejected, domain.RoleSecretary, ""))
		return effects, reason, nil

	case ReopenPayload:
		tech, err := e.requireTechnician(ctx, p.TechnicianID)
		if err != nil {
			return nil, "", err
		}
		assignTo(t, tech.ID, now)
		reason = strings.TrimSpace(p.Reason)
		effects = append(effects,
			setField("technician_id"), setField("assigned_at"),
			notify(domain.EventTicketReopened, domain.RoleTechnician, tech.ID))

	case FeedbackPayload:
		if t.FeedbackScore != nil {
			return nil, "", apperrors.NewInvalidInput("feedback was already submitted for this ticket", map[string]any{"ticket_id": t.ID})
		}
		score := p.Score
		t.FeedbackScore = &score
		if comment := strings.TrimSpace(p.Comment); comment != "" {
			t.FeedbackComment = &comment
		}
		effects = append(effects,
			setField("feedback_score"),
			notify(domain.EventFeedbackSubmitted, domain.RoleTechnician, derefString(t.TechnicianID)))

	default:
		switch req.Transition {
		case TransitionEscalate:
			t.Priority = t.Priority.Raise()
			effects = append(effects,
				setField("priority"),
				notify(domain.EventTicketEscalated, domain.RoleDSIAdmin, ""),
				notify(domain.EventTicketEscalated, domain.RoleSecretary, ""))
		case TransitionAcceptAssignment:
			if t.AcceptedAt != nil {
				return nil, "", apperrors.NewInvalidInput("the assignment was already accepted", map[string]any{"ticket_id": t.ID})
			}
			t.AcceptedAt = &now
			effects = append(effects,
				setField("accepted_at"),
				notify(domain.EventAssignmentAccepted, domain.RoleSecretary, ""))
		case TransitionTakeCharge:
			if t.AcceptedAt == nil {
				t.AcceptedAt = &now
			}
			effects = append(effects, notify(domain.EventWorkStarted, domain.RoleEndUser, t.CreatorID))
		case TransitionClose:
			t.ClosedAt = &now
			effects = append(effects,
				setField("closed_at"),
				notify(domain.EventTicketClosed, domain.RoleEndUser, t.CreatorID),
				notify(domain.EventTicketClosed, domain.RoleTechnician, derefString(t.TechnicianID)))
		}
	}

	t.Status = targetStatus(t.Status, req.Transition)
	return effects, reason, nil
}

func (e *Engine) loadTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewInvalidInput("ticket id is required", nil)
	}
	ticket, err := e.store.GetTicket(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewDependencyUnavailable("ticket store", err)
	}
	return ticket, nil
}

func (e *Engine) requireTechnician(ctx context.Context, id string) (*domain.Technician, error) {
	tech, err := e.directory.GetTechnician(ctx, strings.TrimSpace(id))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewInvalidInput("technician not found", map[string]any{"technician_id": id})
		}
		return nil, apperrors.NewDependencyUnavailable("technician directory", err)
	}
	if !tech.Active {
		return nil, apperrors.NewInvalidInput("technician is inactive", map[string]any{"technician_id": id})
	}
	return tech, nil
}

func (e *Engine) recordHistory(ctx context.Context, req Request, before, after *domain.Ticket, reason string) {
	if e.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      after.ID,
		Transition:    string(req.Transition),
		ActorID:       req.Actor.ID,
		ActorRole:     req.Actor.Role,
		OldStatus:     before.Status,
		NewStatus:     after.Status,
		OldTechnician: before.TechnicianID,
		NewTechnician: after.TechnicianID,
		OldPriority:   before.Priority,
		NewPriority:   after.Priority,
		Reason:        reason,
	}
	if err := e.history.Create(ctx, entry); err != nil {
		e.logger.Warn("record ticket history", zap.String("ticket_id", after.ID), zap.Error(err))
	}
}

func (e *Engine) dispatch(ctx context.Context, ticket *domain.Ticket, effects []SideEffect) {
	if e.notifier == nil {
		return
	}
	for _, effect := range effects {
		if effect.Kind != SideEffectNotify || effect.Recipient == nil {
			continue
		}
		if err := e.notifier.Notify(ctx, effect.Event, ticket, *effect.Recipient); err != nil {
			e.logger.Warn("notification dispatch failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("event", string(effect.Event)),
				zap.Error(err))
		}
	}
}

func (e *Engine) observe(t Transition, err error) {
	if e.observer == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(apperrors.ToDomainError(err).Code)
	}
	e.observer.ObserveTransition(string(t), outcome)
}

func assignTo(t *domain.Ticket, technicianID string, now time.Time) {
	id := technicianID
	t.TechnicianID = &id
	t.AssignedAt = &now
	t.AcceptedAt = nil
}

func unassign(t *domain.Ticket) {
	t.TechnicianID = nil
	t.AssignedAt = nil
	t.AcceptedAt = nil
}

func notify(event domain.NotificationEvent, role domain.Role, id string) SideEffect {
	return SideEffect{Kind: SideEffectNotify, Event: event, Recipient: &domain.Recipient{Role: role, ID: id}}
}

func setField(field string) SideEffect {
	return SideEffect{Kind: SideEffectSetField, Field: field}
}

func clearField(field string) SideEffect {
	return SideEffect{Kind: SideEffectClearField, Field: field}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func humanize(t Transition) string {
	return strings.ReplaceAll(string(t), "_", " ")
}

func humanizeStatus(s domain.TicketStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}
