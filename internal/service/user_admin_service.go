package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TechnicianCache drops a cached technician after its account changes.
type TechnicianCache interface {
	Invalidate(id string)
}

// UserAdminService manages accounts on behalf of DSI administrators.
type UserAdminService struct {
	users      repository.UserRepository
	depts      repository.DepartmentRepository
	cache      TechnicianCache
	bcryptCost int
}

// UserAdminDependencies bundles collaborators.
type UserAdminDependencies struct {
	UserRepo        repository.UserRepository
	DepartmentRepo  repository.DepartmentRepository
	TechnicianCache TechnicianCache
	BcryptCost      int
}

// UserInput describes an account create or update. Password is ignored on update when empty.
type UserInput struct {
	Name           string
	Email          string
	Password       string
	Role           domain.Role
	Specialization *domain.TicketType
	DepartmentID   *string
	Active         bool
}

// UserListFilter narrows account listings. Both fields are optional.
type UserListFilter struct {
	Role         *domain.Role
	DepartmentID *string
}

// NewUserAdminService constructs the service.
func NewUserAdminService(deps UserAdminDependencies) *UserAdminService {
	return &UserAdminService{
		users:      deps.UserRepo,
		depts:      deps.DepartmentRepo,
		cache:      deps.TechnicianCache,
		bcryptCost: deps.BcryptCost,
	}
}

// CreateUser adds an account.
func (s *UserAdminService) CreateUser(ctx context.Context, actor domain.Actor, in UserInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateUserInput(in); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.NewInvalidInput("password must have at least 8 characters", map[string]any{"field": "password"})
	}
	if err := s.ensureEmailFree(ctx, in.Email, ""); err != nil {
		return nil, err
	}
	if err := s.checkDepartment(ctx, in.DepartmentID, nil); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.TrimSpace(in.Email),
		PasswordHash:   hash,
		Role:           in.Role,
		Specialization: specializationFor(in),
		DepartmentID:   departmentFor(in),
		Active:         in.Active,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewDependencyUnavailable("user store", err)
	}
	return user, nil
}

// ListUsers lists accounts, optionally for one role and/or one department.
func (s *UserAdminService) ListUsers(ctx context.Context, actor domain.Actor, filter UserListFilter) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewInvalidInput("unknown role", map[string]any{"field": "role", "value": *filter.Role})
	}
	if filter.DepartmentID != nil {
		users, err := s.users.ListByDepartment(ctx, *filter.DepartmentID)
		if err != nil {
			if apperrors.IsInvalidReference(err) {
				return nil, apperrors.NewInvalidInput("department_id is not a valid id", map[string]any{"field": "department_id"})
			}
			return nil, apperrors.NewDependencyUnavailable("user store", err)
		}
		out := users[:0]
		for _, u := range users {
			if filter.Role == nil || u.Role == *filter.Role {
				out = append(out, u)
			}
		}
		return out, nil
	}

	roles := []domain.Role{domain.RoleEndUser, domain.RoleTechnician, domain.RoleSecretary, domain.RoleDSIAdmin}
	if filter.Role != nil {
		roles = []domain.Role{*filter.Role}
	}
	var out []domain.User
	for _, r := range roles {
		users, err := s.users.ListByRole(ctx, r)
		if err != nil {
			return nil, apperrors.NewDependencyUnavailable("user store", err)
		}
		out = append(out, users...)
	}
	return out, nil
}

// UpdateUser rewrites an account. Deactivated technicians stop being assignable at once.
func (s *UserAdminService) UpdateUser(ctx context.Context, actor domain.Actor, id string, in UserInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateUserInput(in); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.NewDependencyUnavailable("user store", err)
	}
	if !strings.EqualFold(user.Email, strings.TrimSpace(in.Email)) {
		if err := s.ensureEmailFree(ctx, in.Email, user.ID); err != nil {
			return nil, err
		}
	}
	if user.ID == actor.ID && (in.Role != domain.RoleDSIAdmin || !in.Active) {
		return nil, apperrors.NewInvalidInput("administrators cannot demote or disable themselves", nil)
	}
	if err := s.checkDepartment(ctx, in.DepartmentID, user.DepartmentID); err != nil {
		return nil, err
	}

	user.Name = strings.TrimSpace(in.Name)
	user.Email = strings.TrimSpace(in.Email)
	user.Role = in.Role
	user.Specialization = specializationFor(in)
	user.DepartmentID = departmentFor(in)
	user.Active = in.Active
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return nil, apperrors.NewInvalidInput("password must have at least 8 characters", map[string]any{"field": "password"})
		}
		hash, err := auth.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewDependencyUnavailable("user store", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(user.ID)
	}
	return user, nil
}

func (s *UserAdminService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewInvalidInput("email already registered", map[string]any{"field": "email"})
	case err != nil && !apperrors.IsNotFound(err):
		return apperrors.NewDependencyUnavailable("user store", err)
	}
	return nil
}

// checkDepartment requires a chosen department to exist and be active. An account may keep
// the department it already has after that department is retired.
func (s *UserAdminService) checkDepartment(ctx context.Context, id, current *string) error {
	id = trimmedID(id)
	if id == nil {
		return nil
	}
	if s.depts == nil {
		return apperrors.NewInvalidInput("departments are not configured", map[string]any{"field": "department_id"})
	}
	dept, err := s.depts.GetByID(ctx, *id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewInvalidInput("department not found", map[string]any{"field": "department_id", "value": *id})
		}
		return apperrors.NewDependencyUnavailable("department store", err)
	}
	if !dept.Active && (current == nil || *current != dept.ID) {
		return apperrors.NewInvalidInput("department is inactive", map[string]any{"field": "department_id", "value": *id})
	}
	return nil
}

func validateUserInput(in UserInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.NewInvalidInput("name is required", map[string]any{"field": "name"})
	}
	if !validEmail(strings.TrimSpace(in.Email)) {
		return apperrors.NewInvalidInput("email is not a valid address", map[string]any{"field": "email"})
	}
	if !in.Role.Valid() {
		return apperrors.NewInvalidInput("unknown role", map[string]any{"field": "role", "value": in.Role})
	}
	if in.Specialization != nil && !in.Specialization.Valid() {
		return apperrors.NewInvalidInput("specialization must be hardware or software", map[string]any{"field": "specialization"})
	}
	return nil
}

// specializationFor keeps a specialization only on technician accounts.
func specializationFor(in UserInput) *domain.TicketType {
	if in.Role != domain.RoleTechnician || in.Specialization == nil {
		return nil
	}
	specialty := *in.Specialization
	return &specialty
}

func departmentFor(in UserInput) *string {
	return trimmedID(in.DepartmentID)
}

// trimmedID treats a blank optional id as absent.
func trimmedID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}
