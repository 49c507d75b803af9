package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DepartmentRequest payload for department administration.
type DepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	Active      *bool  `json:"active"`
}

// DepartmentResponse renders a department.
type DepartmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDepartmentResponse maps a domain department.
func NewDepartmentResponse(d *domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Active:      d.Active,
		UpdatedAt:   d.UpdatedAt,
	}
}

// CategoryRequest payload for ticket category administration.
type CategoryRequest struct {
	Name        string            `json:"name" validate:"required,max=120"`
	Description string            `json:"description" validate:"max=500"`
	Type        domain.TicketType `json:"type" validate:"required,oneof=hardware software"`
	Active      *bool             `json:"active"`
}

// CategoryResponse renders a ticket category.
type CategoryResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Type        domain.TicketType `json:"type"`
	Active      bool              `json:"active"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewCategoryResponse maps a domain category.
func NewCategoryResponse(c *domain.TicketCategory) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
		Active:      c.Active,
		UpdatedAt:   c.UpdatedAt,
	}
}
