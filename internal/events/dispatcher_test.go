package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string

	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketClosed}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNotifierPublishesPayload(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got Event
	d.Subscribe(EventTicketResolved, func(_ context.Context, e Event) error {
		got = e
		return nil
	})

	ticket := &domain.Ticket{ID: "t-1", Number: 12, CreatorID: "u-1"}
	n := NewNotifier(d)
	require.NoError(t, n.Notify(context.Background(), domain.EventTicketResolved, ticket, domain.Recipient{Role: domain.RoleEndUser, ID: "u-1"}))

	assert.Equal(t, "t-1", got.TicketID)
	assert.NotEmpty(t, got.ID)
	payload, ok := got.Payload.(NotificationPayload)
	require.True(t, ok)
	assert.Equal(t, int64(12), payload.Ticket.Number)
	assert.Equal(t, "u-1", payload.Recipient.ID)

	ticket.Number = 99
	assert.Equal(t, int64(12), payload.Ticket.Number, "payload holds a snapshot")
}

func TestNotificationEventTypes(t *testing.T) {
	types := NotificationEventTypes()
	assert.Contains(t, types, EventTestEmail)
	assert.Contains(t, types, EventFeedbackSubmitted)
	assert.NotContains(t, types, EventCommentAdded)
}
