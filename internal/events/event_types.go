package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers. Notification events reuse the
// domain.NotificationEvent names so a subscriber can route on either.
type EventType string

const (
	EventTicketCreated      = EventType(domain.EventTicketCreated)
	EventTicketAssigned     = EventType(domain.EventTicketAssigned)
	EventTicketEscalated    = EventType(domain.EventTicketEscalated)
	EventTicketReassigned   = EventType(domain.EventTicketReassigned)
	EventAssignmentAccepted = EventType(domain.EventAssignmentAccepted)
	EventAssignmentRejected = EventType(domain.EventAssignmentRejected)
	EventWorkStarted        = EventType(domain.EventWorkStarted)
	EventTicketResolved     = EventType(domain.EventTicketResolved)
	EventResolutionRejected = EventType(domain.EventResolutionRejected)
	EventTicketReopened     = EventType(domain.EventTicketReopened)
	EventTicketClosed       = EventType(domain.EventTicketClosed)
	EventFeedbackSubmitted  = EventType(domain.EventFeedbackSubmitted)
	EventTestEmail          = EventType(domain.EventTestEmail)

	EventCommentAdded EventType = "ticket_comment_added"
)

// NotificationEventTypes lists every event type that may produce an outbox message.
func NotificationEventTypes() []EventType {
	out := make([]EventType, 0, len(domain.AllNotificationEvents)+1)
	for _, e := range domain.AllNotificationEvents {
		out = append(out, EventType(e))
	}
	return append(out, EventTestEmail)
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id,omitempty"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// NotificationPayload carries what a subscriber needs to address one notification.
type NotificationPayload struct {
	Ticket    domain.Ticket    `json:"ticket"`
	Recipient domain.Recipient `json:"recipient"`
}

// TestEmailPayload asks for a rendered test message to a literal address.
type TestEmailPayload struct {
	TemplateID string `json:"template_id"`
	Address    string `json:"address"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string             `json:"comment_id"`
	Kind        domain.CommentKind `json:"kind"`
	AuthorRole  domain.Role        `json:"author_role"`
	BodyPreview string             `json:"body_preview"`
}
