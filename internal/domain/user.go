package domain

import "time"

// User is an account able to sign in under one role.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	Specialization *TicketType
	DepartmentID   *string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Actor returns the session actor for the user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
