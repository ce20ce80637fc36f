package attendance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahel-erp/sahel-erp/internal/platform/db"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

var errConcurrentUpdate = shared.NewError(shared.ErrConflict, "concurrent_update", "Pointage modifié en parallèle, veuillez réessayer.")

// TxRepository exposes transactional operations used by the engine.
type TxRepository interface {
	ListActiveZones(ctx context.Context) ([]Zone, error)
	ZoneKeyExists(ctx context.Context, key string) (bool, error)
	InsertZone(ctx context.Context, z Zone) (Zone, error)
	GetDayForUpdate(ctx context.Context, userID int64, day time.Time) (*Attendance, error)
	InsertCheckIn(ctx context.Context, a Attendance) (int64, error)
	UpdateCheckIn(ctx context.Context, a Attendance) error
	UpdateCheckOut(ctx context.Context, a Attendance) error
}

// Repository persists attendance data in PostgreSQL.
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
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &queries{db: tx})
	})
	if db.IsSerializationFailure(err) {
		return errConcurrentUpdate
	}
	return err
}

type queries struct {
	db db.DBTX
}

const zoneColumns = `id, name, type, COALESCE(address, ''), latitude, longitude, radius, is_active, created_at`

func scanZone(row pgx.Row) (Zone, error) {
	var z Zone
	err := row.Scan(&z.ID, &z.Name, &z.Type, &z.Address, &z.Latitude, &z.Longitude, &z.Radius, &z.IsActive, &z.CreatedAt)
	return z, err
}

func (q *queries) listZones(ctx context.Context, activeOnly bool) ([]Zone, error) {
	rows, err := q.db.Query(ctx, `SELECT `+zoneColumns+` FROM work_locations
WHERE NOT $1 OR is_active
ORDER BY id`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var zones []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// ListActiveZones returns active zones ordered by id.
func (q *queries) ListActiveZones(ctx context.Context) ([]Zone, error) {
	return q.listZones(ctx, true)
}

// ListZones returns every zone ordered by id.
func (q *queries) ListZones(ctx context.Context) ([]Zone, error) {
	return q.listZones(ctx, false)
}

// GetZone returns one zone.
func (q *queries) GetZone(ctx context.Context, id int64) (Zone, error) {
	z, err := scanZone(q.db.QueryRow(ctx, `SELECT `+zoneColumns+` FROM work_locations WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Zone{}, ErrZoneNotFound
		}
		return Zone{}, err
	}
	return z, nil
}

// ZoneKeyExists reports whether a zone already uses the name key.
func (q *queries) ZoneKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM work_locations WHERE name_key = $1)`, key).Scan(&exists)
	return exists, err
}

// InsertZone stores z. A name collision yields ErrZoneNameTaken.
func (q *queries) InsertZone(ctx context.Context, z Zone) (Zone, error) {
	created, err := scanZone(q.db.QueryRow(ctx, `INSERT INTO work_locations
	(name, name_key, type, address, latitude, longitude, radius, is_active)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
RETURNING `+zoneColumns,
		z.Name, NameKey(z.Name), z.Type, z.Address, z.Latitude, z.Longitude, z.Radius, z.IsActive))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Zone{}, ErrZoneNameTaken
		}
		return Zone{}, err
	}
	return created, nil
}

// SetZoneActive toggles a zone.
func (q *queries) SetZoneActive(ctx context.Context, id int64, active bool) (Zone, error) {
	z, err := scanZone(q.db.QueryRow(ctx, `UPDATE work_locations SET is_active = $2 WHERE id = $1 RETURNING `+zoneColumns, id, active))
	if err != nil {
		if db.IsNoRows(err) {
			return Zone{}, ErrZoneNotFound
		}
		return Zone{}, err
	}
	return z, nil
}

// DeleteZone removes a zone; attendance rows keep their location names.
func (q *queries) DeleteZone(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM work_locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrZoneNotFound
	}
	return nil
}

const attendanceColumns = `id, user_id, date, check_in, check_out,
	COALESCE(check_in_location, ''), COALESCE(check_out_location, ''),
	check_in_lat, check_in_lng, check_out_lat, check_out_lng,
	work_location_id, COALESCE(status, ''), COALESCE(notes, '')`

// GetDayForUpdate locks and returns the user's record for day, or nil.
func (q *queries) GetDayForUpdate(ctx context.Context, userID int64, day time.Time) (*Attendance, error) {
	var a Attendance
	err := q.db.QueryRow(ctx, `SELECT `+attendanceColumns+` FROM attendance
WHERE user_id = $1 AND date = $2
FOR UPDATE`, userID, day).Scan(
		&a.ID, &a.UserID, &a.Date, &a.CheckIn, &a.CheckOut,
		&a.CheckInLocation, &a.CheckOutLocation,
		&a.CheckInLat, &a.CheckInLng, &a.CheckOutLat, &a.CheckOutLng,
		&a.WorkLocationID, &a.Status, &a.Notes,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// InsertCheckIn creates the day's record. A concurrent insert yields ErrAlreadyCheckedIn.
func (q *queries) InsertCheckIn(ctx context.Context, a Attendance) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO attendance
	(user_id, date, check_in, check_in_location, check_in_lat, check_in_lng, work_location_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		a.UserID, a.Date, a.CheckIn, a.CheckInLocation, a.CheckInLat, a.CheckInLng, a.WorkLocationID, a.Status,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyCheckedIn
		}
		return 0, err
	}
	return id, nil
}

// UpdateCheckIn fills the check-in of an existing record.
func (q *queries) UpdateCheckIn(ctx context.Context, a Attendance) error {
	_, err := q.db.Exec(ctx, `UPDATE attendance SET
	check_in = $2, check_in_location = $3, check_in_lat = $4, check_in_lng = $5, work_location_id = $6, status = $7
WHERE id = $1`,
		a.ID, a.CheckIn, a.CheckInLocation, a.CheckInLat, a.CheckInLng, a.WorkLocationID, a.Status)
	return err
}

// UpdateCheckOut stamps the check-out.
func (q *queries) UpdateCheckOut(ctx context.Context, a Attendance) error {
	_, err := q.db.Exec(ctx, `UPDATE attendance SET
	check_out = $2, check_out_location = $3, check_out_lat = $4, check_out_lng = $5
WHERE id = $1`,
		a.ID, a.CheckOut, a.CheckOutLocation, a.CheckOutLat, a.CheckOutLng)
	return err
}

// ListHistory returns one page of records and the total row count.
func (q *queries) ListHistory(ctx context.Context, f HistoryFilter) ([]HistoryEntry, int, error) {
	var total int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM attendance a
WHERE ($1::bigint = 0 OR a.user_id = $1) AND ($2::date IS NULL OR a.date = $2)`, f.UserID, f.Date).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.db.Query(ctx, `SELECT a.id, a.user_id, COALESCE(u.nom || ' ' || u.prenom, 'Inconnu'), a.date,
	a.check_in, a.check_out, COALESCE(a.check_in_location, ''), COALESCE(a.check_out_location, '')
FROM attendance a
LEFT JOIN users u ON u.id = a.user_id
WHERE ($1::bigint = 0 OR a.user_id = $1) AND ($2::date IS NULL OR a.date = $2)
ORDER BY a.date DESC, a.id DESC
LIMIT $3 OFFSET $4`, f.UserID, f.Date, f.Page.PerPage, f.Page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var (
			e   HistoryEntry
			day time.Time
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &day, &e.CheckIn, &e.CheckOut, &e.CheckInLocation, &e.CheckOutLocation); err != nil {
			return nil, 0, err
		}
		e.Date = day.Format(time.DateOnly)
		if e.CheckIn != nil && e.CheckOut != nil {
			e.TotalHours = e.CheckOut.Sub(*e.CheckIn).Hours()
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// Roster lists active users with their check-in on day.
func (q *queries) Roster(ctx context.Context, day time.Time) ([]RosterEntry, error) {
	rows, err := q.db.Query(ctx, `SELECT u.id, u.nom, u.prenom, a.check_in
FROM users u
LEFT JOIN attendance a ON a.user_id = u.id AND a.date = $1
WHERE u.is_active
ORDER BY u.nom, u.prenom, u.id`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roster []RosterEntry
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.UserID, &e.Nom, &e.Prenom, &e.CheckIn); err != nil {
			return nil, err
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}
