package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// CatalogService manages the reference data tickets and accounts point at: departments and
// ticket categories. Anyone signed in can read it; only DSI administrators can change it.
type CatalogService struct {
	depts      repository.DepartmentRepository
	categories repository.TicketCategoryRepository
}

// CatalogDependencies bundles repositories.
type CatalogDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	CategoryRepo   repository.TicketCategoryRepository
}

// DepartmentInput describes a department create or update.
type DepartmentInput struct {
	Name        string
	Description string
	Active      bool
}

// CategoryInput describes a ticket category create or update.
type CategoryInput struct {
	Name        string
	Description string
	Type        domain.TicketType
	Active      bool
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	return &CatalogService{depts: deps.DepartmentRepo, categories: deps.CategoryRepo}
}

// ListDepartments returns active departments, or all of them for an administrator asking so.
func (s *CatalogService) ListDepartments(ctx context.Context, actor domain.Actor, includeInactive bool) ([]domain.Department, error) {
	if actor.Role != domain.RoleDSIAdmin {
		includeInactive = false
	}
	depts, err := s.depts.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("department store", err)
	}
	return depts, nil
}

// CreateDepartment adds a department. Names are unique regardless of case.
func (s *CatalogService) CreateDepartment(ctx context.Context, actor domain.Actor, in DepartmentInput) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewInvalidInput("name is required", map[string]any{"field": "name"})
	}
	if err := s.ensureDepartmentNameFree(ctx, name, ""); err != nil {
		return nil, err
	}
	dept := &domain.Department{Name: name, Description: strings.TrimSpace(in.Description), Active: in.Active}
	if err := s.depts.Create(ctx, dept); err != nil {
		return nil, apperrors.NewDependencyUnavailable("department store", err)
	}
	return dept, nil
}

// UpdateDepartment renames, describes or retires a department. Members keep their link.
func (s *CatalogService) UpdateDepartment(ctx context.Context, actor domain.Actor, id string, in DepartmentInput) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewInvalidInput("name is required", map[string]any{"field": "name"})
	}
	dept, err := s.depts.GetByID(ctx, id)
	if err != nil {
		return nil, catalogLookupError("department", id, err)
	}
	if err := s.ensureDepartmentNameFree(ctx, name, dept.ID); err != nil {
		return nil, err
	}
	dept.Name = name
	dept.Description = strings.TrimSpace(in.Description)
	dept.Active = in.Active
	if err := s.depts.Update(ctx, dept); err != nil {
		return nil, catalogLookupError("department", id, err)
	}
	return dept, nil
}

// ListCategories returns categories, optionally for one ticket type. Inactive ones are only
// visible to administrators asking for them.
func (s *CatalogService) ListCategories(ctx context.Context, actor domain.Actor, ticketType *domain.TicketType, includeInactive bool) ([]domain.TicketCategory, error) {
	if ticketType != nil && !ticketType.Valid() {
		return nil, apperrors.NewInvalidInput("type must be hardware or software", map[string]any{"field": "type"})
	}
	if actor.Role != domain.RoleDSIAdmin {
		includeInactive = false
	}
	categories, err := s.categories.List(ctx, repository.CategoryFilter{Type: ticketType, IncludeInactive: includeInactive})
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("category store", err)
	}
	return categories, nil
}

// CreateCategory adds a ticket category.
func (s *CatalogService) CreateCategory(ctx context.Context, actor domain.Actor, in CategoryInput) (*domain.TicketCategory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, err := validateCategoryInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCategoryNameFree(ctx, name, ""); err != nil {
		return nil, err
	}
	category := &domain.TicketCategory{Name: name, Description: strings.TrimSpace(in.Description), Type: in.Type, Active: in.Active}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.NewDependencyUnavailable("category store", err)
	}
	return category, nil
}

// UpdateCategory rewrites a category. Tickets already filed under it keep the link.
func (s *CatalogService) UpdateCategory(ctx context.Context, actor domain.Actor, id string, in CategoryInput) (*domain.TicketCategory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, err := validateCategoryInput(in)
	if err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, catalogLookupError("category", id, err)
	}
	if err := s.ensureCategoryNameFree(ctx, name, category.ID); err != nil {
		return nil, err
	}
	category.Name = name
	category.Description = strings.TrimSpace(in.Description)
	category.Type = in.Type
	category.Active = in.Active
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, catalogLookupError("category", id, err)
	}
	return category, nil
}

// CategoryFor checks that id names an active category of ticketType, for ticket creation.
func (s *CatalogService) CategoryFor(ctx context.Context, id string, ticketType domain.TicketType) (*domain.TicketCategory, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewInvalidInput("category not found", map[string]any{"field": "category_id", "value": id})
		}
		return nil, apperrors.NewDependencyUnavailable("category store", err)
	}
	if !category.Active {
		return nil, apperrors.NewInvalidInput("category is inactive", map[string]any{"field": "category_id", "value": id})
	}
	if category.Type != ticketType {
		return nil, apperrors.NewInvalidInput("category does not belong to the ticket type", map[string]any{
			"field": "category_id", "category_type": category.Type, "ticket_type": ticketType,
		})
	}
	return category, nil
}

func (s *CatalogService) ensureDepartmentNameFree(ctx context.Context, name, selfID string) error {
	depts, err := s.depts.List(ctx, true)
	if err != nil {
		return apperrors.NewDependencyUnavailable("department store", err)
	}
	for _, d := range depts {
		if d.ID != selfID && strings.EqualFold(d.Name, name) {
			return apperrors.NewInvalidInput("department name already used", map[string]any{"field": "name"})
		}
	}
	return nil
}

func (s *CatalogService) ensureCategoryNameFree(ctx context.Context, name, selfID string) error {
	categories, err := s.categories.List(ctx, repository.CategoryFilter{IncludeInactive: true})
	if err != nil {
		return apperrors.NewDependencyUnavailable("category store", err)
	}
	for _, c := range categories {
		if c.ID != selfID && strings.EqualFold(c.Name, name) {
			return apperrors.NewInvalidInput("category name already used", map[string]any{"field": "name"})
		}
	}
	return nil
}

func validateCategoryInput(in CategoryInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", apperrors.NewInvalidInput("name is required", map[string]any{"field": "name"})
	}
	if !in.Type.Valid() {
		return "", apperrors.NewInvalidInput("type must be hardware or software", map[string]any{"field": "type"})
	}
	return name, nil
}

func catalogLookupError(kind, id string, err error) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(kind, map[string]any{kind + "_id": id})
	}
	return apperrors.NewDependencyUnavailable(kind+" store", err)
}
