package domain

import "time"

// Role names asserted by the identity provider.
const (
	RoleAdmin     = "ADMIN"
	RoleOrganizer = "ORGANIZER"
	RoleStaff     = "STAFF"
)

// User is the local mirror of an identity provider account.
type User struct {
	ID        string
	Subject   string
	Email     string
	Name      string
	Roles     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleAssignment is a unique (user, role) pair.
type RoleAssignment struct {
	ID        string
	UserID    string
	Role      string
	CreatedAt time.Time
}
