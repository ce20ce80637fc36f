package roles

import "time"

// AdminRoleName is the role that must always keep the wildcard.
const AdminRoleName = "Administrateur"

// Role represents a role for management.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions string    `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleInput is the payload of POST /roles and PUT /roles/{id}.
type RoleInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
	Permissions string `json:"permissions"`
}
