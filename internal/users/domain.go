package users

import "time"

// DefaultSite is assigned when a user is created without a site.
const DefaultSite = "Dakar"

// TechnicienRole is the role listed by GET /users/techniciens.
const TechnicienRole = "Technicien"

// User represents a user account for management.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Nom         string     `json:"nom"`
	Prenom      string     `json:"prenom"`
	Telephone   string     `json:"telephone"`
	Site        string     `json:"site"`
	RoleID      int64      `json:"role_id"`
	RoleName    string     `json:"role"`
	Permissions string     `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login"`
}

// CreateInput is the payload of POST /users.
type CreateInput struct {
	Username    string `json:"username" validate:"required,max=80"`
	Email       string `json:"email" validate:"required,email,max=120"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Nom         string `json:"nom" validate:"max=100"`
	Prenom      string `json:"prenom" validate:"max=100"`
	Telephone   string `json:"telephone" validate:"max=30"`
	Site        string `json:"site" validate:"max=100"`
	RoleID      int64  `json:"role_id" validate:"required,gt=0"`
	Permissions string `json:"permissions"`
}

// UpdateInput is the payload of PUT /users/{id}. Nil fields are left unchanged.
type UpdateInput struct {
	Username    *string `json:"username" validate:"omitempty,min=1,max=80"`
	Email       *string `json:"email" validate:"omitempty,email,max=120"`
	Nom         *string `json:"nom" validate:"omitempty,max=100"`
	Prenom      *string `json:"prenom" validate:"omitempty,max=100"`
	Telephone   *string `json:"telephone" validate:"omitempty,max=30"`
	Site        *string `json:"site" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
	RoleID      *int64  `json:"role_id" validate:"omitempty,gt=0"`
	Permissions *string `json:"permissions"`
	Password    *string `json:"password" validate:"omitempty,min=6,max=72"`
}

// PasswordChange is the payload of PATCH /users/{id}/password.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// Technicien is a field worker available for assignment.
type Technicien struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Site      string `json:"site"`
}

// Account is a user row including its password hash.
type Account struct {
	User
	PasswordHash string `json:"-"`
}
