package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EagleChen/mapmutex"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type sentNotification struct {
	Event     domain.NotificationEvent
	Recipient domain.Recipient
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.NotificationEvent, _ *domain.Ticket, recipient domain.Recipient) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{Event: event, Recipient: recipient})
	return n.err
}

func (n *recordingNotifier) events() []domain.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationEvent, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Event)
	}
	return out
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *countingObserver) ObserveTransition(_ string, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
}

type fixture struct {
	store    *memory.Store
	engine   *Engine
	notifier *recordingNotifier
	observer *countingObserver
	now      time.Time

	creator   domain.Actor
	secretary domain.Actor
	admin     domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewStore(),
		notifier:  &recordingNotifier{},
		observer:  &countingObserver{},
		now:       time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC),
		creator:   domain.Actor{ID: "user_1", Role: domain.RoleEndUser},
		secretary: domain.Actor{ID: "sec_1", Role: domain.RoleSecretary},
		admin:     domain.Actor{ID: "dsi_1", Role: domain.RoleDSIAdmin},
	}
	for _, id := range []string{"tech_7", "tech_9"} {
		require.NoError(t, f.store.Users().Create(context.Background(), &domain.User{
			ID: id, Name: id, Email: id + "@example.com", Role: domain.RoleTechnician, Active: true,
		}))
	}
	require.NoError(t, f.store.Users().Create(context.Background(), &domain.User{
		ID: "tech_off", Name: "tech_off", Email: "off@example.com", Role: domain.RoleTechnician, Active: false,
	}))

	f.engine = NewEngine(Dependencies{
		Store:     f.store.Tickets(),
		Directory: f.store.Technicians(),
		Notifier:  f.notifier,
		History:   f.store.History(),
		Observer:  f.observer,
		Clock:     func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) tick() {
	f.now = f.now.Add(time.Minute)
}

func (f *fixture) newTicket(t *testing.T, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Title:       "Network cable",
		Description: "No link on desk 12",
		Type:        domain.TicketTypeHardware,
		Priority:    priority,
		Status:      domain.TicketStatusPendingAnalysis,
		CreatorID:   f.creator.ID,
	}
	require.NoError(t, f.store.Tickets().Create(context.Background(), ticket))
	return ticket
}

func (f *fixture) apply(t *testing.T, ticketID string, tr Transition, actor domain.Actor, payload Payload) *Result {
	t.Helper()
	res, err := f.engine.Apply(context.Background(), Request{TicketID: ticketID, Transition: tr, Actor: actor, Payload: payload})
	require.NoError(t, err)
	require.NoError(t, res.Ticket.CheckInvariants())
	f.tick()
	return res
}

func (f *fixture) applyErr(t *testing.T, ticketID string, tr Transition, actor domain.Actor, payload Payload) error {
	t.Helper()
	_, err := f.engine.Apply(context.Background(), Request{TicketID: ticketID, Transition: tr, Actor: actor, Payload: payload})
	require.Error(t, err)
	return err
}

func tech(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleTechnician}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestEngine_HappyPathThenRejectAndReopen(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)
	assert.Equal(t, domain.TicketStatusPendingAnalysis, ticket.Status)

	res := f.apply(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "tech_7"})
	assert.Equal(t, domain.TicketStatusAssigned, res.NewStatus)
	assert.Equal(t, "tech_7", *res.Ticket.TechnicianID)
	assert.NotNil(t, res.Ticket.AssignedAt)

	res = f.apply(t, ticket.ID, TransitionTakeCharge, tech("tech_7"), nil)
	assert.Equal(t, domain.TicketStatusInProgress, res.NewStatus)

	res = f.apply(t, ticket.ID, TransitionMarkResolved, tech("tech_7"), ResolvePayload{Summary: "Replaced faulty cable"})
	assert.Equal(t, domain.TicketStatusResolved, res.NewStatus)
	assert.Equal(t, "Replaced faulty cable", *res.Ticket.ResolutionSummary)

	res = f.apply(t, ticket.ID, TransitionValidate, f.creator, ValidatePayload{Accepted: false})
	assert.Equal(t, domain.TicketStatusRejected, res.NewStatus)
	assert.Nil(t, res.Ticket.TechnicianID)

	res = f.apply(t, ticket.ID, TransitionReopen, f.secretary, ReopenPayload{TechnicianID: "tech_9", Reason: "user unsatisfied"})
	assert.Equal(t, domain.TicketStatusAssigned, res.NewStatus)
	assert.Equal(t, "tech_9", *res.Ticket.TechnicianID)

	stored, err := f.store.Tickets().GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stored.Version)

	history, err := f.store.History().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "reopen", history[4].Transition)
	assert.Equal(t, "user unsatisfied", history[4].Reason)
	assert.Equal(t, domain.TicketStatusRejected, history[4].OldStatus)

	assert.Equal(t, []domain.NotificationEvent{
		domain.EventTicketAssigned,
		domain.EventWorkStarted,
		domain.EventTicketResolved,
		domain.EventResolutionRejected,
		domain.EventResolutionRejected,
		domain.EventTicketReopened,
	}, f.notifier.events())
}

func TestEngine_ValidateAcceptedClosesAndFeedbackOnce(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityLow)
	f.apply(t, ticket.ID, TransitionAssign, f.admin, AssignPayload{TechnicianID: "tech_7"})
	f.apply(t, ticket.ID, TransitionAcceptAssignment, tech("tech_7"), nil)
	f.apply(t, ticket.ID, TransitionTakeCharge, tech("tech_7"), nil)
	f.apply(t, ticket.ID, TransitionMarkResolved, tech("tech_7"), ResolvePayload{Summary: "Rebooted switch"})

	res := f.apply(t, ticket.ID, TransitionValidate, f.creator, ValidatePayload{Accepted: true})
	assert.Equal(t, domain.TicketStatusClosed, res.NewStatus)
	assert.NotNil(t, res.Ticket.ClosedAt)
	assert.Equal(t, "tech_7", *res.Ticket.TechnicianID)

	res = f.apply(t, ticket.ID, TransitionSubmitFeedback, f.creator, FeedbackPayload{Score: 4, Comment: "quick"})
	assert.Equal(t, domain.TicketStatusClosed, res.NewStatus)
	assert.Equal(t, 4, *res.Ticket.FeedbackScore)

	err := f.applyErr(t, ticket.ID, TransitionSubmitFeedback, f.creator, FeedbackPayload{Score: 1})
	assertCode(t, err, apperrors.CodeInvalidInput)

	stored, err := f.store.Tickets().GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, *stored.FeedbackScore, "existing score is never overwritten")
}

func TestEngine_AssignOnlyFromPendingAnalysis(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)
	f.apply(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "tech_7"})

	actors := []domain.Actor{f.secretary, f.admin, f.creator, tech("tech_7"), tech("tech_9")}
	for _, actor := range actors {
		err := f.applyErr(t, ticket.ID, TransitionAssign, actor, AssignPayload{TechnicianID: "tech_9"})
		assertCode(t, err, apperrors.CodeInvalidTransition)
	}

	f.apply(t, ticket.ID, TransitionTakeCharge, tech("tech_7"), nil)
	f.apply(t, ticket.ID, TransitionMarkResolved, tech("tech_7"), ResolvePayload{Summary: "done"})
	for _, actor := range actors {
		err := f.applyErr(t, ticket.ID, TransitionAssign, actor, AssignPayload{TechnicianID: "tech_9"})
		assertCode(t, err, apperrors.CodeInvalidTransition)
	}
}

func TestEngine_ReassignTwiceKeepsSecondTechnician(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)
	f.apply(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "tech_7"})
	f.apply(t, ticket.ID, TransitionAcceptAssignment, tech("tech_7"), nil)

	first := f.apply(t, ticket.ID, TransitionReassign, f.secretary, ReassignPayload{TechnicianID: "tech_9", Reason: "workload"})
	assert.Nil(t, first.Ticket.AcceptedAt)

	secondAt := f.now
	second := f.apply(t, ticket.ID, TransitionReassign, f.admin, ReassignPayload{TechnicianID: "tech_7"})
	assert.Equal(t, "tech_7", *second.Ticket.TechnicianID)
	assert.True(t, second.Ticket.AssignedAt.Equal(secondAt))
	assert.True(t, second.Ticket.AssignedAt.After(*first.Ticket.AssignedAt))

	err := f.applyErr(t, ticket.ID, TransitionReassign, f.admin, ReassignPayload{TechnicianID: "tech_7"})
	assertCode(t, err, apperrors.CodeInvalidInput)

	err = f.applyErr(t, ticket.ID, TransitionAcceptAssignment, tech("tech_9"), nil)
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestEngine_EscalateCapsAtCritical(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)

	res := f.apply(t, ticket.ID, TransitionEscalate, f.secretary, nil)
	assert.Equal(t, domain.TicketPriorityHigh, res.Ticket.Priority)
	assert.Equal(t, domain.TicketStatusPendingAnalysis, res.NewStatus)

	res = f.apply(t, ticket.ID, TransitionEscalate, f.admin, nil)
	assert.Equal(t, domain.TicketPriorityCritical, res.Ticket.Priority)

	res = f.apply(t, ticket.ID, TransitionEscalate, f.secretary, nil)
	assert.Equal(t, domain.TicketPriorityCritical, res.Ticket.Priority)
}

func TestEngine_RejectAssignmentReturnsToPool(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)
	f.apply(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "tech_7"})

	res := f.apply(t, ticket.ID, TransitionRejectAssignment, tech("tech_7"), RejectAssignmentPayload{Reason: "on leave"})
	assert.Equal(t, domain.TicketStatusPendingAnalysis, res.NewStatus)
	assert.Nil(t, res.Ticket.TechnicianID)
	assert.Nil(t, res.Ticket.AssignedAt)

	var roles []domain.Role
	for _, effect := range res.SideEffects {
		if effect.Kind == SideEffectNotify {
			roles = append(roles, effect.Recipient.Role)
			assert.Empty(t, effect.Recipient.ID)
		}
	}
	assert.ElementsMatch(t, []domain.Role{domain.RoleSecretary, domain.RoleDSIAdmin}, roles)
}

func TestEngine_ErrorKinds(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)

	err := f.applyErr(t, ticket.ID, Transition("teleport"), f.admin, nil)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	err = f.applyErr(t, "missing", TransitionEscalate, f.admin, nil)
	assertCode(t, err, apperrors.CodeInvalidInput)
	assert.Equal(t, 404, apperrors.ToDomainError(err).HTTPStatus)

	err = f.applyErr(t, ticket.ID, TransitionAssign, f.creator, AssignPayload{TechnicianID: "tech_7"})
	assertCode(t, err, apperrors.CodeUnauthorized)

	err = f.applyErr(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{})
	assertCode(t, err, apperrors.CodeInvalidInput)

	err = f.applyErr(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "ghost"})
	assertCode(t, err, apperrors.CodeInvalidInput)

	err = f.applyErr(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "tech_off"})
	assertCode(t, err, apperrors.CodeInvalidInput)

	err = f.applyErr(t, ticket.ID, TransitionAssign, f.secretary, ResolvePayload{Summary: "x"})
	assertCode(t, err, apperrors.CodeInvalidInput)

	f.apply(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "tech_7"})
	f.apply(t, ticket.ID, TransitionTakeCharge, tech("tech_7"), nil)
	err = f.applyErr(t, ticket.ID, TransitionMarkResolved, tech("tech_7"), ResolvePayload{Summary: "   "})
	assertCode(t, err, apperrors.CodeInvalidInput)

	stored, getErr := f.store.Tickets().GetTicket(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status, "failed requests leave the ticket unchanged")
	assert.Greater(t, f.observer.outcomes["invalid_input"], 0)
}

func TestEngine_MalformedIDsAgainstPostgres(t *testing.T) {
	badUUID := func(v string) error {
		return &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "` + v + `"`}
	}

	t.Run("technician id", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.newTicket(t, domain.TicketPriorityMedium)
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectQuery(`FROM users u`).WithArgs("tech_7").WillReturnError(badUUID("tech_7"))

		engine := NewEngine(Dependencies{
			Store:     f.store.Tickets(),
			Directory: repository.NewTechnicianRepository(mock),
			Clock:     func() time.Time { return f.now },
		})
		_, err = engine.Apply(context.Background(), Request{
			TicketID: ticket.ID, Transition: TransitionAssign, Actor: f.secretary,
			Payload: AssignPayload{TechnicianID: "tech_7"},
		})
		require.Error(t, err)
		assertCode(t, err, apperrors.CodeInvalidInput)
		assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ticket id", func(t *testing.T) {
		f := newFixture(t)
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectQuery(`FROM tickets WHERE id=\$1`).WithArgs("abc").WillReturnError(badUUID("abc"))

		engine := NewEngine(Dependencies{
			Store:     repository.NewTicketRepository(mock),
			Directory: f.store.Technicians(),
			Clock:     func() time.Time { return f.now },
		})
		_, err = engine.Apply(context.Background(), Request{TicketID: "abc", Transition: TransitionEscalate, Actor: f.admin})
		require.Error(t, err)
		assertCode(t, err, apperrors.CodeInvalidInput)
		assert.Equal(t, 404, apperrors.ToDomainError(err).HTTPStatus)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEngine_NotifierFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("outbox down")
	ticket := f.newTicket(t, domain.TicketPriorityMedium)

	res := f.apply(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "tech_7"})
	assert.Equal(t, domain.TicketStatusAssigned, res.NewStatus)
}

func TestEngine_ConcurrentValidate(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)
	f.apply(t, ticket.ID, TransitionAssign, f.secretary, AssignPayload{TechnicianID: "tech_7"})
	f.apply(t, ticket.ID, TransitionTakeCharge, tech("tech_7"), nil)
	f.apply(t, ticket.ID, TransitionMarkResolved, tech("tech_7"), ResolvePayload{Summary: "done"})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, accepted := range []bool{true, false} {
		wg.Add(1)
		go func(i int, accepted bool) {
			defer wg.Done()
			_, errs[i] = f.engine.Apply(context.Background(), Request{
				TicketID:   ticket.ID,
				Transition: TransitionValidate,
				Actor:      f.creator,
				Payload:    ValidatePayload{Accepted: accepted},
			})
		}(i, accepted)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			apperrors.HasCode(err, apperrors.CodeConcurrentModification) || apperrors.HasCode(err, apperrors.CodeInvalidTransition),
			"unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := f.store.Tickets().GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Contains(t, []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusRejected}, stored.Status)
	assert.Equal(t, int64(5), stored.Version)
}

// racingStore simulates another writer committing between the engine's read and write.
type racingStore struct {
	repository.TicketRepository
	once sync.Once
}

func (s *racingStore) SaveTicket(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	s.once.Do(func() {
		other, _ := s.TicketRepository.GetTicket(ctx, ticket.ID)
		other.Version++
		_ = s.TicketRepository.SaveTicket(ctx, other, other.Version-1)
	})
	return s.TicketRepository.SaveTicket(ctx, ticket, expectedVersion)
}

func TestEngine_StaleVersionIsConcurrentModification(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)
	f.engine.store = &racingStore{TicketRepository: f.store.Tickets()}

	err := f.applyErr(t, ticket.ID, TransitionEscalate, f.secretary, nil)
	assertCode(t, err, apperrors.CodeConcurrentModification)
}

type brokenStore struct {
	repository.TicketRepository
}

func (brokenStore) GetTicket(context.Context, string) (*domain.Ticket, error) {
	return nil, errors.New("connection refused")
}

func TestEngine_StoreFailureIsDependencyUnavailable(t *testing.T) {
	f := newFixture(t)
	f.engine.store = brokenStore{}

	err := f.applyErr(t, "any", TransitionEscalate, f.secretary, nil)
	assertCode(t, err, apperrors.CodeDependencyUnavailable)
}

func TestEngine_LockedTicketIsConcurrentModification(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.TicketPriorityMedium)
	f.engine.locks = mapmutex.NewCustomizedMapMutex(3, 1e6, 1e3, 2, 0.1)

	require.True(t, f.engine.locks.TryLock(ticket.ID))
	defer f.engine.locks.Unlock(ticket.ID)

	err := f.applyErr(t, ticket.ID, TransitionEscalate, f.secretary, nil)
	assertCode(t, err, apperrors.CodeConcurrentModification)
}
