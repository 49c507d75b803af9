package domain

import "time"

// CommentKind differentiates internal notes from creator-facing messages.
type CommentKind string

const (
	CommentKindTechnical   CommentKind = "technical"
	CommentKindInfoRequest CommentKind = "info_request"
	CommentKindReply       CommentKind = "reply"
)

// Valid reports whether k is a known comment kind.
func (k CommentKind) Valid() bool {
	switch k {
	case CommentKindTechnical, CommentKindInfoRequest, CommentKindReply:
		return true
	}
	return false
}

// TicketComment captures side-channel communication on a ticket.
type TicketComment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole Role
	Kind       CommentKind
	Body       string
	CreatedAt  time.Time
}
