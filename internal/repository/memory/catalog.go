package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type departmentStore struct{ s *Store }

func (r departmentStore) Create(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	dept.CreatedAt = now
	dept.UpdatedAt = now
	stored := *dept
	r.s.depts[dept.ID] = &stored
	return nil
}

func (r departmentStore) Update(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.depts[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	dept.UpdatedAt = r.s.now()
	stored := *dept
	r.s.depts[dept.ID] = &stored
	return nil
}

func (r departmentStore) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	dept, ok := r.s.depts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *dept
	return &out, nil
}

func (r departmentStore) List(_ context.Context, includeInactive bool) ([]domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Department
	for _, dept := range r.s.depts {
		if dept.Active || includeInactive {
			result = append(result, *dept)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type categoryStore struct{ s *Store }

func (r categoryStore) Create(_ context.Context, category *domain.TicketCategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	category.CreatedAt = now
	category.UpdatedAt = now
	stored := *category
	r.s.cats[category.ID] = &stored
	return nil
}

func (r categoryStore) Update(_ context.Context, category *domain.TicketCategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.cats[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	category.UpdatedAt = r.s.now()
	stored := *category
	r.s.cats[category.ID] = &stored
	return nil
}

func (r categoryStore) GetByID(_ context.Context, id string) (*domain.TicketCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	category, ok := r.s.cats[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *category
	return &out, nil
}

func (r categoryStore) List(_ context.Context, filter repository.CategoryFilter) ([]domain.TicketCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.TicketCategory
	for _, category := range r.s.cats {
		if filter.Type != nil && category.Type != *filter.Type {
			continue
		}
		if !category.Active && !filter.IncludeInactive {
			continue
		}
		result = append(result, *category)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Type != result[j].Type {
			return result[i].Type < result[j].Type
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}
