package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type countingNotifications struct {
	outcomes map[string]int
}

func (c *countingNotifications) ObserveNotification(event, outcome string) {
	c.outcomes[event+"/"+outcome]++
}

type harness struct {
	store      *memory.Store
	dispatcher events.Dispatcher
	outbox     *persistence.MemoryOutbox
	counts     *countingNotifications
	now        time.Time

	tickets       *TicketService
	assignments   *AssignmentService
	notifications *NotificationService
	emailConfig   *EmailConfigService
	catalog       *CatalogService

	creator    domain.Actor
	stranger   domain.Actor
	technician domain.Actor
	secretary  domain.Actor
	admin      domain.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:      memory.NewStore(),
		outbox:     persistence.NewMemoryOutbox(100),
		counts:     &countingNotifications{outcomes: map[string]int{}},
		now:        time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC),
		creator:    domain.Actor{ID: "user_1", Role: domain.RoleEndUser},
		stranger:   domain.Actor{ID: "user_2", Role: domain.RoleEndUser},
		technician: domain.Actor{ID: "tech_7", Role: domain.RoleTechnician},
		secretary:  domain.Actor{ID: "sec_1", Role: domain.RoleSecretary},
		admin:      domain.Actor{ID: "dsi_1", Role: domain.RoleDSIAdmin},
	}
	hardware := domain.TicketTypeHardware
	seed := []domain.User{
		{ID: "user_1", Name: "Awa", Email: "awa@example.com", Role: domain.RoleEndUser, Active: true},
		{ID: "user_2", Name: "Binta", Email: "binta@example.com", Role: domain.RoleEndUser, Active: true},
		{ID: "tech_7", Name: "Moussa", Email: "moussa@example.com", Role: domain.RoleTechnician, Specialization: &hardware, Active: true},
		{ID: "tech_9", Name: "Fatou", Email: "fatou@example.com", Role: domain.RoleTechnician, Active: true},
		{ID: "sec_1", Name: "Secretariat", Email: "secretariat@example.com", Role: domain.RoleSecretary, Active: true},
		{ID: "sec_2", Name: "Former", Email: "former@example.com", Role: domain.RoleSecretary, Active: false},
		{ID: "dsi_1", Name: "DSI", Email: "dsi@example.com", Role: domain.RoleDSIAdmin, Active: true},
	}
	for i := range seed {
		require.NoError(t, h.store.Users().Create(context.Background(), &seed[i]))
	}

	h.dispatcher = events.NewInMemoryDispatcher(nil)
	clock := func() time.Time { return h.now }
	engine := lifecycle.NewEngine(lifecycle.Dependencies{
		Store:     h.store.Tickets(),
		Directory: h.store.Technicians(),
		Notifier:  events.NewNotifier(h.dispatcher),
		History:   h.store.History(),
		Clock:     clock,
	})

	h.catalog = NewCatalogService(CatalogDependencies{
		DepartmentRepo: h.store.Departments(),
		CategoryRepo:   h.store.Categories(),
	})
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  h.store.Tickets(),
		CommentRepo: h.store.Comments(),
		HistoryRepo: h.store.History(),
		Catalog:     h.catalog,
		Engine:      engine,
		Dispatcher:  h.dispatcher,
	})
	h.assignments = NewAssignmentService(AssignmentDependencies{
		TicketRepo: h.store.Tickets(),
		Directory:  h.store.Technicians(),
	})
	h.notifications = NewNotificationService(NotificationDependencies{
		Dispatcher:      h.dispatcher,
		UserRepo:        h.store.Users(),
		EmailConfigRepo: h.store.EmailConfig(),
		Outbox:          h.outbox,
		Observer:        h.counts,
		Config:          config.NotificationConfig{EmailFrom: "helpdesk@example.com"},
		Clock:           clock,
	})
	h.notifications.RegisterHandlers()
	h.emailConfig = NewEmailConfigService(EmailConfigDependencies{
		EmailConfigRepo: h.store.EmailConfig(),
		Outbox:          h.outbox,
		Dispatcher:      h.dispatcher,
	})
	return h
}

func (h *harness) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), h.creator, TicketCreateInput{
		Title:       "Printer jam",
		Description: "Second floor printer eats paper",
		Type:        domain.TicketTypeHardware,
	})
	require.NoError(t, err)
	return ticket
}

func (h *harness) outboxMessages(t *testing.T) []domain.Notification {
	t.Helper()
	msgs, err := h.outbox.Recent(context.Background(), 0)
	require.NoError(t, err)
	return msgs
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}
