package users

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/sahel-erp/sahel-erp/internal/platform/db"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

var (
	errDuplicateUser = shared.NewError(shared.ErrConflict, "duplicate_user", "Nom d'utilisateur ou email déjà utilisé")
	errRoleNotFound  = shared.NewError(shared.ErrValidation, "role_not_found", "Rôle introuvable")
	errUserInUse     = shared.NewError(shared.ErrConflict, "user_referenced", "Utilisateur référencé par des pointages ou des avances, désactivez-le plutôt.")
	errUserNotFound  = shared.NewError(shared.ErrNotFound, "user_not_found", "Utilisateur non trouvé.")
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

const selectUsers = `SELECT u.id, u.username, u.email, u.nom, u.prenom, u.telephone, u.site,
	u.role_id, COALESCE(r.name, ''), u.permissions, u.is_active, u.created_at, u.last_login, u.password_hash
FROM users u
LEFT JOIN roles r ON r.id = u.role_id`

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, selectUsers+` ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, rec.User)
	}
	return users, rows.Err()
}

// GetUser returns one user with its hash.
func (r *Repository) GetUser(ctx context.Context, id int64) (*Account, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, selectUsers+` WHERE u.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return rec, nil
}

// RoleExists reports whether roleID exists.
func (r *Repository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists)
	return exists, err
}

// CreateUser inserts rec and returns its id.
func (r *Repository) CreateUser(ctx context.Context, rec Account) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO users
	(username, email, password_hash, nom, prenom, telephone, site, role_id, permissions, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`,
		rec.Username, rec.Email, rec.PasswordHash, rec.Nom, rec.Prenom, rec.Telephone, rec.Site,
		rec.RoleID, rec.Permissions, rec.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

// UpdateUser writes every mutable column of rec.
func (r *Repository) UpdateUser(ctx context.Context, rec Account) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET
	username = $2, email = $3, password_hash = $4, nom = $5, prenom = $6, telephone = $7,
	site = $8, role_id = $9, permissions = $10, is_active = $11
WHERE id = $1`,
		rec.ID, rec.Username, rec.Email, rec.PasswordHash, rec.Nom, rec.Prenom, rec.Telephone,
		rec.Site, rec.RoleID, rec.Permissions, rec.IsActive,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errUserNotFound
	}
	return nil
}

// SetPasswordHash replaces the stored hash.
func (r *Repository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errUserNotFound
	}
	return nil
}

// DeleteUser removes a user without history.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errUserNotFound
	}
	return nil
}

// ListActiveByRole returns active users holding the named role.
func (r *Repository) ListActiveByRole(ctx context.Context, roleName string) ([]Technicien, error) {
	rows, err := r.db.Query(ctx, `SELECT u.id, u.username, u.nom, u.prenom, u.email, u.telephone, u.site
FROM users u
JOIN roles r ON r.id = u.role_id
WHERE r.name = $1 AND u.is_active
ORDER BY u.nom, u.prenom`, roleName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Technicien
	for rows.Next() {
		var t Technicien
		if err := rows.Scan(&t.ID, &t.Username, &t.Nom, &t.Prenom, &t.Email, &t.Telephone, &t.Site); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*Account, error) {
	var (
		rec       Account
		lastLogin sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.Username, &rec.Email, &rec.Nom, &rec.Prenom, &rec.Telephone, &rec.Site,
		&rec.RoleID, &rec.RoleName, &rec.Permissions, &rec.IsActive, &rec.CreatedAt, &lastLogin, &rec.PasswordHash)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		rec.LastLogin = &t
	}
	return &rec, nil
}

func translate(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return errDuplicateUser
	case db.IsForeignKeyViolation(err) && db.ConstraintName(err) == "users_role_id_fkey":
		return errRoleNotFound
	case db.IsForeignKeyViolation(err):
		return errUserInUse
	}
	return err
}
