package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Notifier turns lifecycle notification side effects into dispatcher events.
type Notifier struct {
	dispatcher Dispatcher
	now        func() time.Time
}

// NewNotifier wraps dispatcher.
func NewNotifier(dispatcher Dispatcher) *Notifier {
	return &Notifier{dispatcher: dispatcher, now: time.Now}
}

// Notify publishes one notification event for ticket.
func (n *Notifier) Notify(ctx context.Context, event domain.NotificationEvent, ticket *domain.Ticket, recipient domain.Recipient) error {
	return n.dispatcher.Publish(ctx, Event{
		ID:        uuid.NewString(),
		Type:      EventType(event),
		TicketID:  ticket.ID,
		Timestamp: n.now(),
		Payload:   NotificationPayload{Ticket: *ticket.Clone(), Recipient: recipient},
	})
}
