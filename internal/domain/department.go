package domain

import "time"

// Department is an organisational unit end users belong to.
type Department struct {
	ID          string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
