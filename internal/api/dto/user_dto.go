package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// UserRequest payload for account administration. Password may be empty on update.
type UserRequest struct {
	Name           string             `json:"name" validate:"required,max=120"`
	Email          string             `json:"email" validate:"required,email"`
	Password       string             `json:"password" validate:"omitempty,min=8"`
	Role           domain.Role        `json:"role" validate:"required,oneof=end_user technician secretary dsi_admin"`
	Specialization *domain.TicketType `json:"specialization" validate:"omitempty,oneof=hardware software"`
	DepartmentID   *string            `json:"department_id"`
	Active         *bool              `json:"active"`
}

// UserResponse renders an account without its password hash.
type UserResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Role           domain.Role        `json:"role"`
	Specialization *domain.TicketType `json:"specialization,omitempty"`
	DepartmentID   *string            `json:"department_id,omitempty"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		Specialization: u.Specialization,
		DepartmentID:   u.DepartmentID,
		Active:         u.Active,
		CreatedAt:      u.CreatedAt,
	}
}

// TechnicianResponse renders a technician with workload counters.
type TechnicianResponse struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	Specialization  *domain.TicketType `json:"specialization,omitempty"`
	Active          bool               `json:"active"`
	AssignedCount   int                `json:"assigned_count"`
	InProgressCount int                `json:"in_progress_count"`
}

// NewTechnicianResponse maps a domain technician.
func NewTechnicianResponse(t *domain.Technician) TechnicianResponse {
	return TechnicianResponse{
		ID:              t.ID,
		Name:            t.Name,
		Email:           t.Email,
		Specialization:  t.Specialization,
		Active:          t.Active,
		AssignedCount:   t.Workload.AssignedCount,
		InProgressCount: t.Workload.InProgressCount,
	}
}
