package advances

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahel-erp/sahel-erp/internal/platform/db"
)

// TxRepository exposes transactional operations used by Service.
type TxRepository interface {
	Insert(ctx context.Context, a Advance) (Advance, error)
	GetForUpdate(ctx context.Context, id int64) (Advance, error)
	Decide(ctx context.Context, id int64, status, notes string, actorID int64, at time.Time) error
}

// Repository persists salary advances in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	*queries
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, queries: &queries{db: pool}}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &queries{db: tx})
	})
}

type queries struct {
	db db.DBTX
}

const selectAdvance = `SELECT a.id, a.ref_id, a.user_id, COALESCE(u.nom || ' ' || u.prenom, 'Inconnu'), COALESCE(u.email, ''),
       a.montant, a.motif, a.statut, to_char(a.date_demande, 'YYYY-MM-DD'), COALESCE(a.notes_admin, ''),
       a.created_at, a.approved_at, a.approved_by_id
FROM salary_advances a
LEFT JOIN users u ON u.id = a.user_id`

func scanAdvance(row pgx.Row) (Advance, error) {
	var a Advance
	err := row.Scan(&a.ID, &a.RefID, &a.UserID, &a.UserName, &a.UserEmail, &a.Montant, &a.Motif, &a.Statut,
		&a.DateDemande, &a.NotesAdmin, &a.CreatedAt, &a.ApprovedAt, &a.ApprovedBy)
	return a, err
}

// List returns advances newest first. A zero userID lists every user.
func (q *queries) List(ctx context.Context, userID int64) ([]Advance, error) {
	rows, err := q.db.Query(ctx, selectAdvance+`
WHERE $1::bigint = 0 OR a.user_id = $1
ORDER BY a.created_at DESC, a.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Advance
	for rows.Next() {
		a, err := scanAdvance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get loads one advance.
func (q *queries) Get(ctx context.Context, id int64) (Advance, error) {
	a, err := scanAdvance(q.db.QueryRow(ctx, selectAdvance+` WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Advance{}, ErrNotFound
	}
	return a, err
}

// GetForUpdate loads one advance and locks its row.
func (q *queries) GetForUpdate(ctx context.Context, id int64) (Advance, error) {
	a, err := scanAdvance(q.db.QueryRow(ctx, selectAdvance+` WHERE a.id = $1 FOR UPDATE OF a`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Advance{}, ErrNotFound
	}
	return a, err
}

// Insert stores a new pending request.
func (q *queries) Insert(ctx context.Context, a Advance) (Advance, error) {
	err := q.db.QueryRow(ctx, `INSERT INTO salary_advances (ref_id, user_id, montant, motif, statut, date_demande, created_at)
VALUES ($1, $2, $3, $4, $5, $6::date, $7)
RETURNING id`, a.RefID, a.UserID, a.Montant, a.Motif, a.Statut, a.DateDemande, a.CreatedAt).Scan(&a.ID)
	return a, err
}

// Decide stamps the decision on a request still pending.
func (q *queries) Decide(ctx context.Context, id int64, status, notes string, actorID int64, at time.Time) error {
	tag, err := q.db.Exec(ctx, `UPDATE salary_advances
SET statut = $2, notes_admin = $3, approved_by_id = $4, approved_at = $5
WHERE id = $1 AND statut = 'en_attente'`, id, status, notes, actorID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDecided
	}
	return nil
}
