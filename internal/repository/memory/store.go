// Package memory provides an in-process implementation of the repositories, used when no
// Postgres DSN is configured and as the store behind service and engine tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store holds every aggregate behind one lock. Reads return copies.
type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	seq       int64
	tickets   map[string]*domain.Ticket
	users     map[string]*domain.User
	history   []domain.TicketHistory
	comments  []domain.TicketComment
	tokens    map[string]*domain.PasswordResetToken
	settings  *domain.EmailSettings
	templates map[string]*domain.EmailTemplate
	rules     map[string]*domain.NotificationRule
	frequency *domain.FrequencyRule
	depts     map[string]*domain.Department
	cats      map[string]*domain.TicketCategory
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:       time.Now,
		tickets:   make(map[string]*domain.Ticket),
		users:     make(map[string]*domain.User),
		tokens:    make(map[string]*domain.PasswordResetToken),
		templates: make(map[string]*domain.EmailTemplate),
		rules:     make(map[string]*domain.NotificationRule),
		depts:     make(map[string]*domain.Department),
		cats:      make(map[string]*domain.TicketCategory),
	}
}

// Tickets exposes the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketStore{s} }

// Users exposes the user repository view.
func (s *Store) Users() repository.UserRepository { return userStore{s} }

// Technicians exposes the technician directory view.
func (s *Store) Technicians() repository.TechnicianRepository { return technicianStore{s} }

// History exposes the audit trail view.
func (s *Store) History() repository.TicketHistoryRepository { return historyStore{s} }

// Comments exposes the comment view.
func (s *Store) Comments() repository.TicketCommentRepository { return commentStore{s} }

// PasswordResets exposes the reset token view.
func (s *Store) PasswordResets() repository.PasswordResetRepository { return resetStore{s} }

// EmailConfig exposes the mail panel configuration view.
func (s *Store) EmailConfig() repository.EmailConfigRepository { return emailConfigStore{s} }

// Departments exposes the department view.
func (s *Store) Departments() repository.DepartmentRepository { return departmentStore{s} }

// Categories exposes the ticket category view.
func (s *Store) Categories() repository.TicketCategoryRepository { return categoryStore{s} }

type ticketStore struct{ s *Store }

func (r ticketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq++
	now := r.s.now()
	ticket.ID = uuid.NewString()
	ticket.Number = r.s.seq
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	ticket.Version = 1
	r.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r ticketStore) GetTicket(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket.Clone(), nil
}

func (r ticketStore) SaveTicket(_ context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	r.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r ticketStore) ListTickets(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []domain.Ticket
	for _, ticket := range r.s.tickets {
		if matchTicket(ticket, filter) {
			matched = append(matched, *ticket.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].Number > matched[j].Number
	})

	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r ticketStore) StatusReport(_ context.Context) (*repository.StatusReport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	report := &repository.StatusReport{Counts: make(map[domain.TicketStatus]int, len(domain.AllTicketStatuses))}
	for _, status := range domain.AllTicketStatuses {
		report.Counts[status] = 0
	}
	total := 0
	for _, ticket := range r.s.tickets {
		report.Counts[ticket.Status]++
		if ticket.FeedbackScore != nil {
			report.FeedbackCount++
			total += *ticket.FeedbackScore
		}
	}
	if report.FeedbackCount > 0 {
		report.AverageFeedback = float64(total) / float64(report.FeedbackCount)
	}
	return report, nil
}

func matchTicket(t *domain.Ticket, f repository.TicketFilter) bool {
	if f.CreatorID != nil && t.CreatorID != *f.CreatorID {
		return false
	}
	if f.TechnicianID != nil && !t.AssignedTo(*f.TechnicianID) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, t.Type) {
		return false
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	if f.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

type userStore struct{ s *Store }

func (r userStore) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return &duplicateError{field: "email"}
		}
	}
	now := r.s.now()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r userStore) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = r.s.now()
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (r userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			out := *user
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userStore) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.User
	for _, user := range r.s.users {
		if user.Role == role {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r userStore) ListByDepartment(_ context.Context, departmentID string) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.User
	for _, user := range r.s.users {
		if user.DepartmentID != nil && *user.DepartmentID == departmentID {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type duplicateError struct{ field string }

func (e *duplicateError) Error() string { return "duplicate " + e.field }

type technicianStore struct{ s *Store }

func (r technicianStore) GetTechnician(_ context.Context, id string) (*domain.Technician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok || user.Role != domain.RoleTechnician {
		return nil, pgx.ErrNoRows
	}
	tech := r.s.technicianFrom(user)
	return &tech, nil
}

func (r technicianStore) ListTechnicians(_ context.Context) ([]domain.Technician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Technician
	for _, user := range r.s.users {
		if user.Role == domain.RoleTechnician {
			result = append(result, r.s.technicianFrom(user))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// technicianFrom must be called with the read lock held.
func (s *Store) technicianFrom(user *domain.User) domain.Technician {
	tech := domain.Technician{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Specialization: user.Specialization,
		Active:         user.Active,
	}
	for _, ticket := range s.tickets {
		if !ticket.AssignedTo(user.ID) {
			continue
		}
		switch ticket.Status {
		case domain.TicketStatusAssigned:
			tech.Workload.AssignedCount++
		case domain.TicketStatusInProgress:
			tech.Workload.AssignedCount++
			tech.Workload.InProgressCount++
		}
	}
	return tech
}

type historyStore struct{ s *Store }

func (r historyStore) Create(_ context.Context, history *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	history.ID = uuid.NewString()
	history.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *history)
	return nil
}

func (r historyStore) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.TicketHistory
	for _, entry := range r.s.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type commentStore struct{ s *Store }

func (r commentStore) Create(_ context.Context, comment *domain.TicketComment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	comment.ID = uuid.NewString()
	comment.CreatedAt = r.s.now()
	r.s.comments = append(r.s.comments, *comment)
	return nil
}

func (r commentStore) ListByTicket(_ context.Context, ticketID string, kinds []domain.CommentKind) ([]domain.TicketComment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.TicketComment
	for _, comment := range r.s.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if len(kinds) > 0 && !contains(kinds, comment.Kind) {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

type resetStore struct{ s *Store }

func (r resetStore) Create(_ context.Context, token *domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token.ID = uuid.NewString()
	token.CreatedAt = r.s.now()
	stored := *token
	r.s.tokens[token.Token] = &stored
	return nil
}

func (r resetStore) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.tokens[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r resetStore) MarkUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, stored := range r.s.tokens {
		if stored.ID == id && stored.UsedAt == nil {
			now := r.s.now()
			stored.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}
