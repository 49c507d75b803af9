package domain

import "time"

// Notification is an outbox message handed to the external mailer.
type Notification struct {
	ID             string            `json:"id"`
	Event          NotificationEvent `json:"event"`
	TicketID       string            `json:"ticket_id,omitempty"`
	TicketNumber   string            `json:"ticket_number,omitempty"`
	RecipientRole  Role              `json:"recipient_role"`
	RecipientID    string            `json:"recipient_id,omitempty"`
	RecipientEmail string            `json:"recipient_email,omitempty"`
	Subject        string            `json:"subject"`
	Template       string            `json:"template,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	SendAfter      time.Time         `json:"send_after"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NotificationEvent names a notification-worthy lifecycle event.
type NotificationEvent string

const (
	EventTicketCreated      NotificationEvent = "ticket_created"
	EventTicketAssigned     NotificationEvent = "ticket_assigned"
	EventTicketEscalated    NotificationEvent = "ticket_escalated"
	EventTicketReassigned   NotificationEvent = "ticket_reassigned"
	EventAssignmentAccepted NotificationEvent = "assignment_accepted"
	EventAssignmentRejected NotificationEvent = "assignment_rejected"
	EventWorkStarted        NotificationEvent = "work_started"
	EventTicketResolved     NotificationEvent = "ticket_resolved"
	EventResolutionRejected NotificationEvent = "resolution_rejected"
	EventTicketReopened     NotificationEvent = "ticket_reopened"
	EventTicketClosed       NotificationEvent = "ticket_closed"
	EventFeedbackSubmitted  NotificationEvent = "feedback_submitted"
	EventTestEmail          NotificationEvent = "test_email"
	EventPasswordReset      NotificationEvent = "password_reset"
)

// AllNotificationEvents lists the events a notification rule can target.
var AllNotificationEvents = []NotificationEvent{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketEscalated,
	EventTicketReassigned,
	EventAssignmentAccepted,
	EventAssignmentRejected,
	EventWorkStarted,
	EventTicketResolved,
	EventResolutionRejected,
	EventTicketReopened,
	EventTicketClosed,
	EventFeedbackSubmitted,
}

// Recipient addresses a notification to one person or, with an empty ID, to a whole role.
type Recipient struct {
	Role Role
	ID   string
}
