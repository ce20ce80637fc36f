package rbac

import (
	"context"
	"database/sql"

	"github.com/sahel-erp/sahel-erp/internal/platform/db"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// LoadSubject fetches the user's direct permissions together with its role.
func (r *PGRepository) LoadSubject(ctx context.Context, userID int64) (*Subject, error) {
	const query = `SELECT u.id, u.is_active, COALESCE(u.permissions, ''),
	r.id, r.name, r.permissions
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
WHERE u.id = $1`
	var (
		subject   Subject
		direct    string
		roleID    sql.NullInt64
		roleName  sql.NullString
		rolePerms sql.NullString
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(&subject.UserID, &subject.Active, &direct, &roleID, &roleName, &rolePerms)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	subject.Permissions = ParseSet(direct)
	if roleID.Valid {
		subject.Role = &RoleGrant{ID: roleID.Int64, Name: roleName.String, Permissions: ParseSet(rolePerms.String)}
	}
	return &subject, nil
}

var _ Repository = (*PGRepository)(nil)
