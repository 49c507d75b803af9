package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// EmailConfigService backs the DSI email administration panel.
type EmailConfigService struct {
	repo       repository.EmailConfigRepository
	outbox     persistence.Outbox
	dispatcher events.Dispatcher
}

// EmailConfigDependencies bundles collaborators.
type EmailConfigDependencies struct {
	EmailConfigRepo repository.EmailConfigRepository
	Outbox          persistence.Outbox
	Dispatcher      events.Dispatcher
}

// SettingsUpdate replaces the mailer settings. A nil SMTPPassword keeps the stored one.
type SettingsUpdate struct {
	Provider     string
	SenderEmail  string
	DisplayName  string
	SMTPHost     string
	SMTPPort     int
	AuthType     string
	SMTPUsername string
	SMTPPassword *string
	UseTLS       bool
	VerifySSL    bool
}

// TemplateInput describes a template create or update.
type TemplateInput struct {
	Name       string
	Event      string
	Subject    string
	Body       string
	Recipients string
	Active     bool
}

// NewEmailConfigService creates the service.
func NewEmailConfigService(deps EmailConfigDependencies) *EmailConfigService {
	return &EmailConfigService{
		repo:       deps.EmailConfigRepo,
		outbox:     deps.Outbox,
		dispatcher: deps.Dispatcher,
	}
}

// GetSettings returns the mailer settings with the password blanked.
func (s *EmailConfigService) GetSettings(ctx context.Context, actor domain.Actor) (*domain.EmailSettings, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return &domain.EmailSettings{}, nil
		}
		return nil, apperrors.NewDependencyUnavailable("email settings", err)
	}
	settings.SMTPPassword = ""
	return settings, nil
}

// UpdateSettings stores new mailer settings.
func (s *EmailConfigService) UpdateSettings(ctx context.Context, actor domain.Actor, in SettingsUpdate) (*domain.EmailSettings, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if in.SenderEmail != "" {
		if !validEmail(in.SenderEmail) {
			return nil, apperrors.NewInvalidInput("sender email is not a valid address", map[string]any{"field": "sender_email"})
		}
	}
	if in.SMTPPort < 0 || in.SMTPPort > 65535 {
		return nil, apperrors.NewInvalidInput("smtp port out of range", map[string]any{"field": "smtp_port"})
	}

	password := ""
	current, err := s.repo.GetSettings(ctx)
	switch {
	case err == nil:
		password = current.SMTPPassword
	case !apperrors.IsNotFound(err):
		return nil, apperrors.NewDependencyUnavailable("email settings", err)
	}
	if in.SMTPPassword != nil {
		password = *in.SMTPPassword
	}

	settings := &domain.EmailSettings{
		Provider:     strings.TrimSpace(in.Provider),
		SenderEmail:  strings.TrimSpace(in.SenderEmail),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		SMTPHost:     strings.TrimSpace(in.SMTPHost),
		SMTPPort:     in.SMTPPort,
		AuthType:     in.AuthType,
		SMTPUsername: in.SMTPUsername,
		SMTPPassword: password,
		UseTLS:       in.UseTLS,
		VerifySSL:    in.VerifySSL,
	}
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, apperrors.NewDependencyUnavailable("email settings", err)
	}
	out := *settings
	out.SMTPPassword = ""
	return &out, nil
}

// ListTemplates returns every template.
func (s *EmailConfigService) ListTemplates(ctx context.Context, actor domain.Actor) ([]domain.EmailTemplate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("email templates", err)
	}
	return templates, nil
}

// CreateTemplate stores a new template.
func (s *EmailConfigService) CreateTemplate(ctx context.Context, actor domain.Actor, in TemplateInput) (*domain.EmailTemplate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	tpl, err := templateFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return nil, apperrors.NewDependencyUnavailable("email templates", err)
	}
	return tpl, nil
}

// UpdateTemplate replaces an existing template.
func (s *EmailConfigService) UpdateTemplate(ctx context.Context, actor domain.Actor, id string, in TemplateInput) (*domain.EmailTemplate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	tpl, err := templateFromInput(in)
	if err != nil {
		return nil, err
	}
	tpl.ID = id
	if err := s.repo.UpdateTemplate(ctx, tpl); err != nil {
		return nil, templateError(id, err)
	}
	return tpl, nil
}

// DeleteTemplate removes a template.
func (s *EmailConfigService) DeleteTemplate(ctx context.Context, actor domain.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return templateError(id, err)
	}
	return nil
}

// ListRules returns one rule per notification event, defaulting missing rules to active.
func (s *EmailConfigService) ListRules(ctx context.Context, actor domain.Actor) ([]domain.NotificationRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	stored, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("notification rules", err)
	}
	byEvent := make(map[string]domain.NotificationRule, len(stored))
	for _, r := range stored {
		byEvent[r.Event] = r
	}
	rules := make([]domain.NotificationRule, 0, len(domain.AllNotificationEvents))
	for _, event := range domain.AllNotificationEvents {
		rule, ok := byEvent[string(event)]
		if !ok {
			rule = domain.NotificationRule{Event: string(event), Active: true}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// UpdateRule toggles an event and sets its recipients.
func (s *EmailConfigService) UpdateRule(ctx context.Context, actor domain.Actor, event string, active bool, recipients string) (*domain.NotificationRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !knownEvent(event) {
		return nil, apperrors.NewInvalidInput("unknown notification event", map[string]any{"event": event})
	}
	if _, err := ParseRecipients(recipients); err != nil {
		return nil, err
	}
	rule := &domain.NotificationRule{Event: event, Active: active, Recipients: strings.TrimSpace(recipients)}
	if err := s.repo.SaveRule(ctx, rule); err != nil {
		return nil, apperrors.NewDependencyUnavailable("notification rules", err)
	}
	return rule, nil
}

// GetFrequency returns the batching rule, immediate when none is stored.
func (s *EmailConfigService) GetFrequency(ctx context.Context, actor domain.Actor) (*domain.FrequencyRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, err := s.repo.GetFrequency(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return &domain.FrequencyRule{Mode: domain.FrequencyImmediate}, nil
		}
		return nil, apperrors.NewDependencyUnavailable("notification frequency", err)
	}
	return rule, nil
}

// UpdateFrequency validates and stores the batching rule.
func (s *EmailConfigService) UpdateFrequency(ctx context.Context, actor domain.Actor, rule domain.FrequencyRule) (*domain.FrequencyRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	switch rule.Mode {
	case domain.FrequencyImmediate:
	case domain.FrequencyGrouped:
		if rule.GroupIntervalMinutes <= 0 {
			return nil, apperrors.NewInvalidInput("grouped mode needs a positive interval", map[string]any{"field": "group_interval_minutes"})
		}
	case domain.FrequencyDaily:
		if _, _, err := parseClock(rule.DailyTime); err != nil {
			return nil, apperrors.NewInvalidInput("daily time must be HH:MM", map[string]any{"field": "daily_time"})
		}
	default:
		return nil, apperrors.NewInvalidInput("unknown frequency mode", map[string]any{"field": "mode", "value": rule.Mode})
	}
	for field, v := range map[string]string{"silence_from": rule.SilenceFrom, "silence_to": rule.SilenceTo} {
		if v == "" {
			continue
		}
		if _, _, err := parseClock(v); err != nil {
			return nil, apperrors.NewInvalidInput("silence bounds must be HH:MM", map[string]any{"field": field})
		}
	}
	if err := s.repo.SaveFrequency(ctx, &rule); err != nil {
		return nil, apperrors.NewDependencyUnavailable("notification frequency", err)
	}
	return &rule, nil
}

// SendTestEmail queues a message rendered from templateID to address.
func (s *EmailConfigService) SendTestEmail(ctx context.Context, actor domain.Actor, templateID, address string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !validEmail(address) {
		return apperrors.NewInvalidInput("test address is not a valid email", map[string]any{"field": "email"})
	}
	if _, err := s.repo.GetTemplate(ctx, templateID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewInvalidInput("unknown template", map[string]any{"template_id": templateID})
		}
		return apperrors.NewDependencyUnavailable("email templates", err)
	}
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTestEmail,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   events.TestEmailPayload{TemplateID: templateID, Address: address},
	})
}

// Logs returns the most recent outbox entries.
func (s *EmailConfigService) Logs(ctx context.Context, actor domain.Actor, limit int) ([]domain.Notification, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.outbox.Recent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("notification outbox", err)
	}
	return logs, nil
}

func templateFromInput(in TemplateInput) (*domain.EmailTemplate, error) {
	name := strings.TrimSpace(in.Name)
	subject := strings.TrimSpace(in.Subject)
	if name == "" || subject == "" {
		return nil, apperrors.NewInvalidInput("template name and subject are required", map[string]any{"fields": []string{"name", "subject"}})
	}
	if !knownEvent(in.Event) {
		return nil, apperrors.NewInvalidInput("unknown notification event", map[string]any{"field": "event", "value": in.Event})
	}
	if _, err := ParseRecipients(in.Recipients); err != nil {
		return nil, err
	}
	return &domain.EmailTemplate{
		Name:       name,
		Event:      in.Event,
		Subject:    subject,
		Body:       in.Body,
		Recipients: strings.TrimSpace(in.Recipients),
		Active:     in.Active,
	}, nil
}

func templateError(id string, err error) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound("template", map[string]any{"template_id": id})
	}
	return apperrors.NewDependencyUnavailable("email templates", err)
}

func knownEvent(event string) bool {
	for _, e := range domain.AllNotificationEvents {
		if string(e) == event {
			return true
		}
	}
	return false
}

func requireAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleDSIAdmin {
		return apperrors.NewUnauthorized("restricted to DSI administrators")
	}
	return nil
}
