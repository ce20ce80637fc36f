package roles

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sahel-erp/sahel-erp/internal/platform/db"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

var (
	errDuplicateRole = shared.NewError(shared.ErrConflict, "duplicate_role", "Un rôle portant ce nom existe déjà.")
	errRoleNotFound  = shared.NewError(shared.ErrNotFound, "role_not_found", "Rôle introuvable")
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, permissions, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// GetRole returns one role.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, `SELECT id, name, description, permissions, created_at FROM roles WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Role{}, errRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO roles (name, description, permissions)
VALUES ($1, $2, $3)
RETURNING id, name, description, permissions, created_at`, role.Name, role.Description, role.Permissions)
	created, err := scanRole(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, errDuplicateRole
		}
		return Role{}, err
	}
	return created, nil
}

// UpdateRole rewrites name, description and permissions.
func (r *Repository) UpdateRole(ctx context.Context, role Role) (Role, error) {
	row := r.db.QueryRow(ctx, `UPDATE roles SET name = $2, description = $3, permissions = $4
WHERE id = $1
RETURNING id, name, description, permissions, created_at`, role.ID, role.Name, role.Description, role.Permissions)
	updated, err := scanRole(row)
	if err != nil {
		switch {
		case db.IsNoRows(err):
			return Role{}, errRoleNotFound
		case db.IsUniqueViolation(err):
			return Role{}, errDuplicateRole
		}
		return Role{}, err
	}
	return updated, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions, &role.CreatedAt)
	return role, err
}
