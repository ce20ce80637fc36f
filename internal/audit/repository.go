package audit

import (
	"context"

	"github.com/sahel-erp/sahel-erp/internal/platform/db"
)

// Repository reads audit_logs using PostgreSQL.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs Repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// Window returns the rows matching q, newest first.
func (r *Repository) Window(ctx context.Context, q Query) ([]TimelineRow, error) {
	rows, err := r.db.Query(ctx, `SELECT l.occurred_at, l.actor_id, COALESCE(u.email, 'system'),
	l.action, l.entity, l.entity_id, l.meta
FROM audit_logs l
LEFT JOIN users u ON u.id = l.actor_id
WHERE l.occurred_at >= $1 AND l.occurred_at < $2
  AND ($3::text IS NULL OR u.email ILIKE '%' || $3 || '%')
  AND ($4::text IS NULL OR l.entity = $4)
  AND ($5::text IS NULL OR l.action = $5)
ORDER BY l.occurred_at DESC, l.id DESC
LIMIT $6 OFFSET $7`, q.FromAt, q.ToAt, q.Actor, q.Entity, q.Action, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.ActorID, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &row.Meta); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
