package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EmailSettingsRequest payload. SMTPPassword is write-only; omit it to keep the stored one.
type EmailSettingsRequest struct {
	Provider     string  `json:"provider" validate:"required"`
	SenderEmail  string  `json:"sender_email" validate:"required,email"`
	DisplayName  string  `json:"display_name"`
	SMTPHost     string  `json:"smtp_host" validate:"required,hostname|ip"`
	SMTPPort     int     `json:"smtp_port" validate:"required,min=1,max=65535"`
	AuthType     string  `json:"auth_type"`
	SMTPUsername string  `json:"smtp_username"`
	SMTPPassword *string `json:"smtp_password"`
	UseTLS       bool    `json:"use_tls"`
	VerifySSL    bool    `json:"verify_ssl"`
}

// EmailSettingsResponse renders settings without the password.
type EmailSettingsResponse struct {
	Provider     string    `json:"provider"`
	SenderEmail  string    `json:"sender_email"`
	DisplayName  string    `json:"display_name"`
	SMTPHost     string    `json:"smtp_host"`
	SMTPPort     int       `json:"smtp_port"`
	AuthType     string    `json:"auth_type"`
	SMTPUsername string    `json:"smtp_username"`
	UseTLS       bool      `json:"use_tls"`
	VerifySSL    bool      `json:"verify_ssl"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewEmailSettingsResponse maps settings.
func NewEmailSettingsResponse(s *domain.EmailSettings) EmailSettingsResponse {
	return EmailSettingsResponse{
		Provider:     s.Provider,
		SenderEmail:  s.SenderEmail,
		DisplayName:  s.DisplayName,
		SMTPHost:     s.SMTPHost,
		SMTPPort:     s.SMTPPort,
		AuthType:     s.AuthType,
		SMTPUsername: s.SMTPUsername,
		UseTLS:       s.UseTLS,
		VerifySSL:    s.VerifySSL,
		UpdatedAt:    s.UpdatedAt,
	}
}

// EmailTemplateRequest payload.
type EmailTemplateRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Event      string `json:"event" validate:"required"`
	Subject    string `json:"subject" validate:"required,max=255"`
	Body       string `json:"body"`
	Recipients string `json:"recipients"`
	Active     bool   `json:"active"`
}

// EmailTemplateResponse renders a template.
type EmailTemplateResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Event      string    `json:"event"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Recipients string    `json:"recipients"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewEmailTemplateResponse maps a template.
func NewEmailTemplateResponse(t *domain.EmailTemplate) EmailTemplateResponse {
	return EmailTemplateResponse{
		ID:         t.ID,
		Name:       t.Name,
		Event:      t.Event,
		Subject:    t.Subject,
		Body:       t.Body,
		Recipients: t.Recipients,
		Active:     t.Active,
		UpdatedAt:  t.UpdatedAt,
	}
}

// NotificationRuleRequest payload for PUT /admin/email/rules/:event.
type NotificationRuleRequest struct {
	Active     bool   `json:"active"`
	Recipients string `json:"recipients"`
}

// NotificationRuleResponse renders a rule.
type NotificationRuleResponse struct {
	Event      string `json:"event"`
	Active     bool   `json:"active"`
	Recipients string `json:"recipients"`
}

// FrequencyRequest payload.
type FrequencyRequest struct {
	Mode                 domain.FrequencyMode `json:"mode" validate:"required,oneof=immediate grouped daily"`
	GroupIntervalMinutes int                  `json:"group_interval_minutes" validate:"min=0"`
	DailyTime            string               `json:"daily_time"`
	SilenceFrom          string               `json:"silence_from"`
	SilenceTo            string               `json:"silence_to"`
	ApplyWeekend         bool                 `json:"apply_weekend"`
}

// FrequencyResponse renders the batching rule.
type FrequencyResponse FrequencyRequest

// NewFrequencyResponse maps a rule.
func NewFrequencyResponse(r *domain.FrequencyRule) FrequencyResponse {
	return FrequencyResponse{
		Mode:                 r.Mode,
		GroupIntervalMinutes: r.GroupIntervalMinutes,
		DailyTime:            r.DailyTime,
		SilenceFrom:          r.SilenceFrom,
		SilenceTo:            r.SilenceTo,
		ApplyWeekend:         r.ApplyWeekend,
	}
}

// TestEmailRequest payload.
type TestEmailRequest struct {
	TemplateID string `json:"template_id" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
}
