package lifecycle

import (
	"strings"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Payload is the per-transition input. Each transition accepts exactly one variant.
type Payload interface {
	transition() Transition
	validate() error
}

// NoPayload is used by transitions that take no input.
type NoPayload struct{}

// AssignPayload names the technician for assign.
type AssignPayload struct {
	TechnicianID string
}

// ReassignPayload names the replacement technician.
type ReassignPayload struct {
	TechnicianID string
	Reason       string
}

// RejectAssignmentPayload carries the technician's optional refusal reason.
type RejectAssignmentPayload struct {
	Reason string
}

// ResolvePayload carries the resolution summary.
type ResolvePayload struct {
	Summary string
}

// ValidatePayload carries the creator's verdict on a resolution.
type ValidatePayload struct {
	Accepted bool
}

// ReopenPayload names the technician restarting a rejected ticket.
type ReopenPayload struct {
	TechnicianID string
	Reason       string
}

// FeedbackPayload carries the creator's satisfaction score.
type FeedbackPayload struct {
	Score   int
	Comment string
}

func (NoPayload) transition() Transition               { return "" }
func (AssignPayload) transition() Transition           { return TransitionAssign }
func (ReassignPayload) transition() Transition         { return TransitionReassign }
func (RejectAssignmentPayload) transition() Transition { return TransitionRejectAssignment }
func (ResolvePayload) transition() Transition          { return TransitionMarkResolved }
func (ValidatePayload) transition() Transition         { return TransitionValidate }
func (ReopenPayload) transition() Transition           { return TransitionReopen }
func (FeedbackPayload) transition() Transition         { return TransitionSubmitFeedback }

func (NoPayload) validate() error { return nil }

func (p AssignPayload) validate() error {
	return requireTechnicianID(p.TechnicianID)
}

func (p ReassignPayload) validate() error {
	return requireTechnicianID(p.TechnicianID)
}

func (RejectAssignmentPayload) validate() error { return nil }

func (p ResolvePayload) validate() error {
	if strings.TrimSpace(p.Summary) == "" {
		return apperrors.NewInvalidInput("a resolution summary is required to mark the ticket resolved", map[string]any{"field": "resolution_summary"})
	}
	return nil
}

func (ValidatePayload) validate() error { return nil }

func (p ReopenPayload) validate() error {
	return requireTechnicianID(p.TechnicianID)
}

func (p FeedbackPayload) validate() error {
	if p.Score < 1 || p.Score > 5 {
		return apperrors.NewInvalidInput("feedback score must be between 1 and 5", map[string]any{"field": "score", "value": p.Score})
	}
	return nil
}

func requireTechnicianID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewInvalidInput("choose a technician before submitting", map[string]any{"field": "technician_id"})
	}
	return nil
}

// checkPayload verifies that p is the variant t expects and that its fields are well formed.
func checkPayload(t Transition, p Payload) error {
	if p == nil {
		p = NoPayload{}
	}
	if p.transition() != expectedPayload(t) {
		return apperrors.NewInvalidInput("payload does not match transition", map[string]any{"transition": t})
	}
	return p.validate()
}

func expectedPayload(t Transition) Transition {
	switch t {
	case TransitionAssign, TransitionReassign, TransitionRejectAssignment, TransitionMarkResolved,
		TransitionValidate, TransitionReopen, TransitionSubmitFeedback:
		return t
	}
	return ""
}
