package models

import "time"

// Holder roles
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// AccountHolder is the person who owns accounts. Authentication resolves a
// request to a holder id; the services re-check ownership against it on
// every mutating call.
type AccountHolder struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
