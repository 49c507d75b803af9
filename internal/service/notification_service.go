package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// NotificationObserver counts notification outcomes.
type NotificationObserver interface {
	ObserveNotification(event, outcome string)
}

// NotificationService turns dispatcher events into outbox messages for the external mailer.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	emailCfg   repository.EmailConfigRepository
	outbox     persistence.Outbox
	observer   NotificationObserver
	logger     *zap.Logger
	cfg        config.NotificationConfig
	now        func() time.Time
	// extraSent remembers configured addresses already mailed for one ticket transition.
	extraSent *lru.Cache
}

const extraRecipientMemory = 1024

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher      events.Dispatcher
	UserRepo        repository.UserRepository
	EmailConfigRepo repository.EmailConfigRepository
	Outbox          persistence.Outbox
	Observer        NotificationObserver
	Logger          *zap.Logger
	Config          config.NotificationConfig
	Clock           func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	n := &NotificationService{
		dispatcher: deps.Dispatcher,
		users:      deps.UserRepo,
		emailCfg:   deps.EmailConfigRepo,
		outbox:     deps.Outbox,
		observer:   deps.Observer,
		logger:     deps.Logger,
		cfg:        deps.Config,
		now:        deps.Clock,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.now == nil {
		n.now = time.Now
	}
	n.extraSent, _ = lru.New(extraRecipientMemory)
	return n
}

// RegisterHandlers subscribes to every notification event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.NotificationEventTypes() {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	var (
		queued int
		err    error
	)
	if event.Type == events.EventTestEmail {
		queued, err = n.handleTestEmail(ctx, event)
	} else {
		queued, err = n.handleTicketEvent(ctx, event)
	}

	switch {
	case err != nil:
		n.observe(event.Type, "failed")
		n.logger.Warn("notification not queued",
			zap.String("event", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return err
	case queued == 0:
		n.observe(event.Type, "skipped")
	default:
		for i := 0; i < queued; i++ {
			n.observe(event.Type, "queued")
		}
	}
	return nil
}

func (n *NotificationService) handleTicketEvent(ctx context.Context, event events.Event) (int, error) {
	payload, ok := notificationPayload(event.Payload)
	if !ok {
		return 0, fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	rule, err := n.rule(ctx, string(event.Type))
	if err != nil {
		return 0, err
	}
	if !rule.Active {
		n.logger.Debug("notification rule inactive", zap.String("event", string(event.Type)))
		return 0, nil
	}
	tpl, err := n.activeTemplate(ctx, string(event.Type))
	if err != nil {
		return 0, err
	}
	routing := n.routing(rule, tpl)

	var recipients []domain.User
	if routing.Allows(payload.Recipient.Role) {
		recipients, err = n.resolveRecipients(ctx, payload.Recipient)
		if err != nil {
			return 0, err
		}
	}
	ticket := payload.Ticket
	recipients = append(recipients, n.extraRecipients(domain.NotificationEvent(event.Type), &ticket, routing.Addresses)...)
	if len(recipients) == 0 {
		return 0, nil
	}
	sendAfter, err := n.sendAfter(ctx)
	if err != nil {
		return 0, err
	}

	subject := defaultSubject(domain.NotificationEvent(event.Type), &ticket)
	templateName := ""
	if tpl != nil {
		subject = renderSubject(tpl.Subject, &ticket)
		templateName = tpl.Name
	}

	queued := 0
	for _, user := range recipients {
		msg := domain.Notification{
			ID:             uuid.NewString(),
			Event:          domain.NotificationEvent(event.Type),
			TicketID:       ticket.ID,
			TicketNumber:   ticket.DisplayNumber(),
			RecipientRole:  user.Role,
			RecipientID:    user.ID,
			RecipientEmail: user.Email,
			Subject:        subject,
			Template:       templateName,
			SendAfter:      sendAfter,
			CreatedAt:      n.now(),
		}
		if err := n.outbox.Enqueue(ctx, msg); err != nil {
			return queued, fmt.Errorf("enqueue notification: %w", err)
		}
		queued++
	}
	return queued, nil
}

func (n *NotificationService) handleTestEmail(ctx context.Context, event events.Event) (int, error) {
	payload, ok := event.Payload.(events.TestEmailPayload)
	if !ok {
		return 0, fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	tpl, err := n.emailCfg.GetTemplate(ctx, payload.TemplateID)
	if err != nil {
		return 0, fmt.Errorf("load template %s: %w", payload.TemplateID, err)
	}
	msg := domain.Notification{
		ID:             uuid.NewString(),
		Event:          domain.EventTestEmail,
		RecipientEmail: payload.Address,
		Subject:        tpl.Subject,
		Template:       tpl.Name,
		SendAfter:      n.now(),
		CreatedAt:      n.now(),
	}
	if err := n.outbox.Enqueue(ctx, msg); err != nil {
		return 0, fmt.Errorf("enqueue test email: %w", err)
	}
	return 1, nil
}

// rule treats a missing rule as enabled with default routing so fresh installs still notify.
func (n *NotificationService) rule(ctx context.Context, event string) (*domain.NotificationRule, error) {
	fallback := &domain.NotificationRule{Event: event, Active: true}
	if n.emailCfg == nil {
		return fallback, nil
	}
	rule, err := n.emailCfg.GetRule(ctx, event)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fallback, nil
		}
		return nil, fmt.Errorf("load rule %s: %w", event, err)
	}
	return rule, nil
}

// routing picks the configured recipients: the rule's list wins, then the active template's.
// Stored lists were validated on save, so an unparsable one is logged and ignored.
func (n *NotificationService) routing(rule *domain.NotificationRule, tpl *domain.EmailTemplate) RecipientList {
	raw := rule.Recipients
	if strings.TrimSpace(raw) == "" && tpl != nil {
		raw = tpl.Recipients
	}
	list, err := ParseRecipients(raw)
	if err != nil {
		n.logger.Warn("ignoring stored recipients", zap.String("event", rule.Event), zap.Error(err))
		return RecipientList{}
	}
	return list
}

// extraRecipients returns the configured addresses not yet mailed for this ticket version, so a
// transition that notifies several roles reaches each address once.
func (n *NotificationService) extraRecipients(event domain.NotificationEvent, ticket *domain.Ticket, addresses []string) []domain.User {
	var out []domain.User
	for _, address := range addresses {
		key := fmt.Sprintf("%s|%s|%d|%s", event, ticket.ID, ticket.Version, address)
		if seen, _ := n.extraSent.ContainsOrAdd(key, struct{}{}); seen {
			continue
		}
		out = append(out, domain.User{Email: address})
	}
	return out
}

func (n *NotificationService) resolveRecipients(ctx context.Context, recipient domain.Recipient) ([]domain.User, error) {
	if recipient.ID != "" {
		user, err := n.users.GetByID(ctx, recipient.ID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				n.logger.Warn("notification recipient missing", zap.String("user_id", recipient.ID))
				return nil, nil
			}
			return nil, fmt.Errorf("load recipient %s: %w", recipient.ID, err)
		}
		if !user.Active {
			return nil, nil
		}
		return []domain.User{*user}, nil
	}

	users, err := n.users.ListByRole(ctx, recipient.Role)
	if err != nil {
		return nil, fmt.Errorf("list %s recipients: %w", recipient.Role, err)
	}
	out := users[:0]
	for _, u := range users {
		if u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func (n *NotificationService) activeTemplate(ctx context.Context, event string) (*domain.EmailTemplate, error) {
	if n.emailCfg == nil {
		return nil, nil
	}
	templates, err := n.emailCfg.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for i := range templates {
		if templates[i].Active && templates[i].Event == event {
			return &templates[i], nil
		}
	}
	return nil, nil
}

func (n *NotificationService) sendAfter(ctx context.Context) (time.Time, error) {
	now := n.now()
	if n.emailCfg == nil {
		return now, nil
	}
	rule, err := n.emailCfg.GetFrequency(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return now, nil
		}
		return time.Time{}, fmt.Errorf("load frequency: %w", err)
	}
	return NextSendTime(now, rule), nil
}

func (n *NotificationService) observe(event events.EventType, outcome string) {
	if n.observer != nil {
		n.observer.ObserveNotification(string(event), outcome)
	}
}

func notificationPayload(v any) (events.NotificationPayload, bool) {
	switch p := v.(type) {
	case events.NotificationPayload:
		return p, true
	case *events.NotificationPayload:
		if p != nil {
			return *p, true
		}
	}
	return events.NotificationPayload{}, false
}

func defaultSubject(event domain.NotificationEvent, ticket *domain.Ticket) string {
	label := strings.ReplaceAll(string(event), "_", " ")
	return fmt.Sprintf("[Helpdesk] %s %s: %s", ticket.DisplayNumber(), label, ticket.Title)
}

// renderSubject fills the {{ticket_number}} and {{ticket_title}} placeholders.
func renderSubject(subject string, ticket *domain.Ticket) string {
	r := strings.NewReplacer(
		"{{ticket_number}}", ticket.DisplayNumber(),
		"{{ticket_title}}", ticket.Title,
		"{{ticket_priority}}", string(ticket.Priority),
		"{{ticket_status}}", string(ticket.Status),
	)
	return r.Replace(subject)
}
