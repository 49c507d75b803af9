package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestEmailConfigRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, actor := range []domain.Actor{h.creator, h.technician, h.secretary} {
		_, err := h.emailConfig.GetSettings(ctx, actor)
		requireCode(t, err, apperrors.CodeUnauthorized)
		_, err = h.emailConfig.ListTemplates(ctx, actor)
		requireCode(t, err, apperrors.CodeUnauthorized)
		_, err = h.emailConfig.Logs(ctx, actor, 10)
		requireCode(t, err, apperrors.CodeUnauthorized)
	}
}

func TestSettingsPasswordIsWriteOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	secret := "s3cret"

	out, err := h.emailConfig.UpdateSettings(ctx, h.admin, SettingsUpdate{
		Provider: "smtp", SenderEmail: "helpdesk@example.com", SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPPassword: &secret,
	})
	require.NoError(t, err)
	assert.Empty(t, out.SMTPPassword)

	_, err = h.emailConfig.UpdateSettings(ctx, h.admin, SettingsUpdate{
		Provider: "smtp", SenderEmail: "helpdesk@example.com", SMTPHost: "smtp2.example.com", SMTPPort: 465,
	})
	require.NoError(t, err)

	stored, err := h.store.EmailConfig().GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", stored.SMTPPassword, "omitted password keeps the stored one")
	assert.Equal(t, "smtp2.example.com", stored.SMTPHost)

	got, err := h.emailConfig.GetSettings(ctx, h.admin)
	require.NoError(t, err)
	assert.Empty(t, got.SMTPPassword)

	_, err = h.emailConfig.UpdateSettings(ctx, h.admin, SettingsUpdate{SenderEmail: "not-an-email"})
	requireCode(t, err, apperrors.CodeInvalidInput)
}

func TestTemplateLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.emailConfig.CreateTemplate(ctx, h.admin, TemplateInput{Name: "x", Event: "coffee_ready", Subject: "s"})
	requireCode(t, err, apperrors.CodeInvalidInput)

	tpl, err := h.emailConfig.CreateTemplate(ctx, h.admin, TemplateInput{Name: "created", Event: "ticket_created", Subject: "New ticket", Active: true})
	require.NoError(t, err)
	require.NotEmpty(t, tpl.ID)

	updated, err := h.emailConfig.UpdateTemplate(ctx, h.admin, tpl.ID, TemplateInput{Name: "created", Event: "ticket_created", Subject: "New ticket {{ticket_number}}"})
	require.NoError(t, err)
	assert.False(t, updated.Active)

	require.NoError(t, h.emailConfig.DeleteTemplate(ctx, h.admin, tpl.ID))
	err = h.emailConfig.DeleteTemplate(ctx, h.admin, tpl.ID)
	requireCode(t, err, apperrors.CodeInvalidInput)

	err = h.emailConfig.SendTestEmail(ctx, h.admin, tpl.ID, "ops@example.com")
	requireCode(t, err, apperrors.CodeInvalidInput)
}

func TestRulesDefaultToActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.emailConfig.UpdateRule(ctx, h.admin, string(domain.EventWorkStarted), false, "creator")
	require.NoError(t, err)
	_, err = h.emailConfig.UpdateRule(ctx, h.admin, "lunch", true, "")
	requireCode(t, err, apperrors.CodeInvalidInput)

	rules, err := h.emailConfig.ListRules(ctx, h.admin)
	require.NoError(t, err)
	require.Len(t, rules, len(domain.AllNotificationEvents))
	for _, rule := range rules {
		if rule.Event == string(domain.EventWorkStarted) {
			assert.False(t, rule.Active)
			assert.Equal(t, "creator", rule.Recipients)
			continue
		}
		assert.True(t, rule.Active, rule.Event)
	}
}

func TestFrequencyValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	current, err := h.emailConfig.GetFrequency(ctx, h.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyImmediate, current.Mode)

	bad := []domain.FrequencyRule{
		{Mode: "hourly"},
		{Mode: domain.FrequencyGrouped},
		{Mode: domain.FrequencyDaily, DailyTime: "5pm"},
		{Mode: domain.FrequencyImmediate, SilenceFrom: "25:00", SilenceTo: "09:00"},
	}
	for _, rule := range bad {
		_, err := h.emailConfig.UpdateFrequency(ctx, h.admin, rule)
		requireCode(t, err, apperrors.CodeInvalidInput)
	}

	saved, err := h.emailConfig.UpdateFrequency(ctx, h.admin, domain.FrequencyRule{Mode: domain.FrequencyDaily, DailyTime: "08:30", SilenceFrom: "18:00", SilenceTo: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, "08:30", saved.DailyTime)
}

func TestLogsReturnNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.openTicket(t)
	second := h.openTicket(t)

	logs, err := h.emailConfig.Logs(ctx, h.admin, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, second.ID, logs[0].TicketID)
	assert.Equal(t, first.ID, logs[1].TicketID)
}
