package domain

import "time"

// EmailSettings holds SMTP connection parameters for the external mailer.
type EmailSettings struct {
	Provider     string
	SenderEmail  string
	DisplayName  string
	SMTPHost     string
	SMTPPort     int
	AuthType     string
	SMTPUsername string
	SMTPPassword string
	UseTLS       bool
	VerifySSL    bool
	UpdatedAt    time.Time
}

// EmailTemplate is a per-event message template.
type EmailTemplate struct {
	ID         string
	Name       string
	Event      string
	Subject    string
	Body       string
	Recipients string
	Active     bool
	UpdatedAt  time.Time
}

// NotificationRule toggles an event and names its recipients.
type NotificationRule struct {
	Event      string
	Active     bool
	Recipients string
}

// FrequencyMode controls send batching.
type FrequencyMode string

const (
	FrequencyImmediate FrequencyMode = "immediate"
	FrequencyGrouped   FrequencyMode = "grouped"
	FrequencyDaily     FrequencyMode = "daily"
)

// FrequencyRule describes the send-batching window.
type FrequencyRule struct {
	Mode                 FrequencyMode
	GroupIntervalMinutes int
	DailyTime            string
	SilenceFrom          string
	SilenceTo            string
	ApplyWeekend         bool
}
