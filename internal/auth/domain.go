package auth

import "time"

// UnknownRole labels users without a role.
const UnknownRole = "Inconnu"

// User represents an account as seen by the login flow.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Nom          string
	Prenom       string
	RoleName     string
	IsActive     bool
	LastLogin    *time.Time
}

// RoleLabel returns the role name or UnknownRole.
func (u *User) RoleLabel() string {
	if u == nil || u.RoleName == "" {
		return UnknownRole
	}
	return u.RoleName
}

// UserSummary is the identity block returned on login.
type UserSummary struct {
	ID     int64  `json:"id"`
	Prenom string `json:"prenom"`
	Nom    string `json:"nom"`
	Role   string `json:"role"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserSummary `json:"user"`
}

// VerifyResult describes the caller of GET /auth/verify.
type VerifyResult struct {
	Status           string `json:"status"`
	UserID           int64  `json:"user_id"`
	Email            string `json:"email"`
	Prenom           string `json:"prenom"`
	Role             string `json:"role"`
	IsLoginTimeValid bool   `json:"is_login_time_valid"`
}
