package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// EmailAdminHandler serves the DSI email configuration panel.
type EmailAdminHandler struct {
	service *service.EmailConfigService
}

// NewEmailAdminHandler constructs handler.
func NewEmailAdminHandler(svc *service.EmailConfigService) *EmailAdminHandler {
	return &EmailAdminHandler{service: svc}
}

// GetSettings GET /admin/email/settings.
func (h *EmailAdminHandler) GetSettings(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	settings, err := h.service.GetSettings(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmailSettingsResponse(settings)})
}

// UpdateSettings PUT /admin/email/settings.
func (h *EmailAdminHandler) UpdateSettings(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EmailSettingsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	settings, err := h.service.UpdateSettings(c.UserContext(), actor, service.SettingsUpdate{
		Provider:     req.Provider,
		SenderEmail:  req.SenderEmail,
		DisplayName:  req.DisplayName,
		SMTPHost:     req.SMTPHost,
		SMTPPort:     req.SMTPPort,
		AuthType:     req.AuthType,
		SMTPUsername: req.SMTPUsername,
		SMTPPassword: req.SMTPPassword,
		UseTLS:       req.UseTLS,
		VerifySSL:    req.VerifySSL,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmailSettingsResponse(settings)})
}

// ListTemplates GET /admin/email/templates.
func (h *EmailAdminHandler) ListTemplates(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	templates, err := h.service.ListTemplates(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.EmailTemplateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, dto.NewEmailTemplateResponse(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateTemplate POST /admin/email/templates.
func (h *EmailAdminHandler) CreateTemplate(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EmailTemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tpl, err := h.service.CreateTemplate(c.UserContext(), actor, templateInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewEmailTemplateResponse(tpl)})
}

// UpdateTemplate PUT /admin/email/templates/:id.
func (h *EmailAdminHandler) UpdateTemplate(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EmailTemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tpl, err := h.service.UpdateTemplate(c.UserContext(), actor, c.Params("id"), templateInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmailTemplateResponse(tpl)})
}

// DeleteTemplate DELETE /admin/email/templates/:id.
func (h *EmailAdminHandler) DeleteTemplate(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTemplate(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListRules GET /admin/email/rules.
func (h *EmailAdminHandler) ListRules(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	rules, err := h.service.ListRules(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationRuleResponse, 0, len(rules))
	for _, r := range rules {
		items = append(items, dto.NotificationRuleResponse{Event: r.Event, Active: r.Active, Recipients: r.Recipients})
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateRule PUT /admin/email/rules/:event.
func (h *EmailAdminHandler) UpdateRule(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.NotificationRuleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rule, err := h.service.UpdateRule(c.UserContext(), actor, c.Params("event"), req.Active, req.Recipients)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NotificationRuleResponse{Event: rule.Event, Active: rule.Active, Recipients: rule.Recipients}})
}

// GetFrequency GET /admin/email/frequency.
func (h *EmailAdminHandler) GetFrequency(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	rule, err := h.service.GetFrequency(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFrequencyResponse(rule)})
}

// UpdateFrequency PUT /admin/email/frequency.
func (h *EmailAdminHandler) UpdateFrequency(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.FrequencyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rule, err := h.service.UpdateFrequency(c.UserContext(), actor, domain.FrequencyRule{
		Mode:                 req.Mode,
		GroupIntervalMinutes: req.GroupIntervalMinutes,
		DailyTime:            req.DailyTime,
		SilenceFrom:          req.SilenceFrom,
		SilenceTo:            req.SilenceTo,
		ApplyWeekend:         req.ApplyWeekend,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFrequencyResponse(rule)})
}

// SendTestEmail POST /admin/email/test.
func (h *EmailAdminHandler) SendTestEmail(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TestEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.service.SendTestEmail(c.UserContext(), actor, req.TemplateID, req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "queued"}})
}

// Logs GET /admin/email/logs?limit=n.
func (h *EmailAdminHandler) Logs(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	logs, err := h.service.Logs(c.UserContext(), actor, queryInt(c, "limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": logs})
}

func templateInput(req dto.EmailTemplateRequest) service.TemplateInput {
	return service.TemplateInput{
		Name:       req.Name,
		Event:      req.Event,
		Subject:    req.Subject,
		Body:       req.Body,
		Recipients: req.Recipients,
		Active:     req.Active,
	}
}
