package attendance

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// Status values stored on attendance rows.
const (
	StatusPresent = "present"
	StatusLate    = "late"
)

// RepositoryPort is the persistence port of the engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListZones(ctx context.Context) ([]Zone, error)
	ListActiveZones(ctx context.Context) ([]Zone, error)
	GetZone(ctx context.Context, id int64) (Zone, error)
	InsertZone(ctx context.Context, z Zone) (Zone, error)
	SetZoneActive(ctx context.Context, id int64, active bool) (Zone, error)
	DeleteZone(ctx context.Context, id int64) error
	ListHistory(ctx context.Context, f HistoryFilter) ([]HistoryEntry, int, error)
	Roster(ctx context.Context, day time.Time) ([]RosterEntry, error)
}

// EventObserver receives one call per check-in/check-out attempt.
type EventObserver interface {
	ObserveAttendance(event, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveAttendance(string, string) {}

// Config carries the business calendar settings.
type Config struct {
	Location   *time.Location
	LateCutoff shared.ClockTime
}

// Service implements the geofenced check-in/check-out state machine.
type Service struct {
	repo     RepositoryPort
	cfg      Config
	observer EventObserver
	audit    shared.Auditor
	logger   *slog.Logger
	now      func() time.Time
	stats    singleflight.Group
}

// NewService constructs Service. observer and audit may be nil.
func NewService(repo RepositoryPort, cfg Config, observer EventObserver, audit shared.Auditor, logger *slog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LateCutoff == (shared.ClockTime{}) {
		cfg.LateCutoff = shared.ClockTime{Hour: 9, Minute: 15}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, observer: observer, audit: audit, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today returns the current business date.
func (s *Service) Today() time.Time {
	return shared.BusinessDate(s.now(), s.cfg.Location)
}

// CheckIn binds the caller to the zone containing the point, creating a
// chantier zone when none matches and a name is given, and opens the day.
func (s *Service) CheckIn(ctx context.Context, userID int64, in CheckInInput) (*CheckInResult, error) {
	result, err := s.checkIn(ctx, userID, in)
	s.observer.ObserveAttendance("check_in", outcome(err))
	return result, err
}

func (s *Service) checkIn(ctx context.Context, userID int64, in CheckInInput) (*CheckInResult, error) {
	if in.Latitude == nil || in.Longitude == nil {
		return nil, errMissingCoordinates
	}
	point := Point{Lat: *in.Latitude, Lng: *in.Longitude}
	if !point.Valid() {
		return nil, errBadCoordinates
	}
	now := s.now().UTC()
	day := shared.BusinessDate(now, s.cfg.Location)

	var result CheckInResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		zones, err := tx.ListActiveZones(ctx)
		if err != nil {
			return err
		}
		match, found := ResolveZone(point, zones)
		if !found {
			zone, err := s.createZoneAt(ctx, tx, point, in.LocationName)
			if err != nil {
				return err
			}
			match = Match{Zone: zone}
			result.ZoneCreated = true
		}

		rec, err := tx.GetDayForUpdate(ctx, userID, day)
		if err != nil {
			return err
		}
		if rec != nil && rec.CheckIn != nil {
			return ErrAlreadyCheckedIn
		}
		if rec == nil {
			rec = &Attendance{UserID: userID, Date: day}
		}
		zoneID := match.Zone.ID
		rec.CheckIn = &now
		rec.CheckInLocation = match.Zone.Name
		rec.CheckInLat = &point.Lat
		rec.CheckInLng = &point.Lng
		rec.WorkLocationID = &zoneID
		rec.Status = StatusPresent
		if s.cfg.LateCutoff.IsExceededBy(now, s.cfg.Location) {
			rec.Status = StatusLate
		}
		if rec.ID == 0 {
			if _, err := tx.InsertCheckIn(ctx, *rec); err != nil {
				return err
			}
		} else if err := tx.UpdateCheckIn(ctx, *rec); err != nil {
			return err
		}
		result.Zone = match.Zone
		result.Distance = match.Distance
		result.CheckIn = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.ZoneCreated {
		s.logger.Info("zone created on check-in", slog.Int64("zone_id", result.Zone.ID), slog.String("name", result.Zone.Name), slog.Int64("user_id", userID))
		s.record(ctx, userID, "zone.create", result.Zone.ID, map[string]any{"name": result.Zone.Name, "source": "check_in"})
	}
	return &result, nil
}

func (s *Service) createZoneAt(ctx context.Context, tx TxRepository, p Point, proposed string) (Zone, error) {
	name := CleanName(proposed)
	if name == "" {
		return Zone{}, ErrZoneNameRequired
	}
	exists, err := tx.ZoneKeyExists(ctx, NameKey(name))
	if err != nil {
		return Zone{}, err
	}
	if exists {
		return Zone{}, ErrZoneNameTaken
	}
	return tx.InsertZone(ctx, Zone{
		Name:      name,
		Type:      ZoneChantier,
		Latitude:  p.Lat,
		Longitude: p.Lng,
		Radius:    DefaultRadius,
		IsActive:  true,
	})
}

// CheckOut closes the day from the zone the caller checked into.
func (s *Service) CheckOut(ctx context.Context, userID int64, in CheckOutInput) (*CheckOutResult, error) {
	result, err := s.checkOut(ctx, userID, in)
	s.observer.ObserveAttendance("check_out", outcome(err))
	return result, err
}

func (s *Service) checkOut(ctx context.Context, userID int64, in CheckOutInput) (*CheckOutResult, error) {
	location := CleanName(in.Location)
	if location == "" {
		return nil, errMissingLocation
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, errMissingCoordinates
	}
	if in.Latitude != nil && !(Point{Lat: *in.Latitude, Lng: *in.Longitude}).Valid() {
		return nil, errBadCoordinates
	}
	now := s.now().UTC()
	day := shared.BusinessDate(now, s.cfg.Location)

	var result CheckOutResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetDayForUpdate(ctx, userID, day)
		if err != nil {
			return err
		}
		if rec == nil || rec.CheckIn == nil {
			return ErrMustCheckIn
		}
		if rec.CheckOut != nil {
			return ErrAlreadyCheckedOut
		}
		if !SameLocation(location, rec.CheckInLocation) {
			return ErrZoneMismatch
		}
		out := now
		if out.Before(*rec.CheckIn) {
			out = *rec.CheckIn
		}
		rec.CheckOut = &out
		rec.CheckOutLocation = rec.CheckInLocation
		rec.CheckOutLat = in.Latitude
		rec.CheckOutLng = in.Longitude
		if err := tx.UpdateCheckOut(ctx, *rec); err != nil {
			return err
		}
		result = CheckOutResult{
			CheckIn:    *rec.CheckIn,
			CheckOut:   out,
			Location:   rec.CheckOutLocation,
			TotalHours: rec.TotalHours(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ParseDay parses an optional YYYY-MM-DD filter.
func ParseDay(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, errBadDate
	}
	return &day, nil
}

// History lists attendance rows. A zero UserID lists every user.
func (s *Service) History(ctx context.Context, f HistoryFilter) ([]HistoryEntry, shared.Pagination, error) {
	entries, total, err := s.repo.ListHistory(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, shared.NewPagination(f.Page.Page, f.Page.PerPage, total), nil
}

const statsQueryTimeout = 15 * time.Second

// TodayStats classifies active users for the current business day.
// Concurrent calls for the same day share one query.
func (s *Service) TodayStats(ctx context.Context) (DailyStats, error) {
	return s.StatsFor(ctx, s.Today())
}

// StatsFor classifies active users for day. The shared query is detached from
// any single caller; each caller only waits on its own ctx.
func (s *Service) StatsFor(ctx context.Context, day time.Time) (DailyStats, error) {
	key := day.Format(time.DateOnly)
	ch := s.stats.DoChan(key, func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsQueryTimeout)
		defer cancel()
		roster, err := s.repo.Roster(qctx, day)
		if err != nil {
			return DailyStats{}, err
		}
		return Classify(day, roster, s.cfg.LateCutoff, s.cfg.Location), nil
	})
	select {
	case <-ctx.Done():
		return DailyStats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return DailyStats{}, res.Err
		}
		return res.Val.(DailyStats), nil
	}
}

// Classify splits a roster into presents, absents and retards.
func Classify(day time.Time, roster []RosterEntry, cutoff shared.ClockTime, loc *time.Location) DailyStats {
	stats := DailyStats{
		Date:     day.Format(time.DateOnly),
		Presents: []PersonRef{},
		Absents:  []PersonRef{},
		Retards:  []PersonRef{},
	}
	for _, e := range roster {
		ref := PersonRef{ID: e.UserID, Name: strings.TrimSpace(e.Nom + " " + e.Prenom)}
		if e.CheckIn == nil {
			stats.Absents = append(stats.Absents, ref)
			continue
		}
		stats.Presents = append(stats.Presents, ref)
		if cutoff.IsExceededBy(*e.CheckIn, loc) {
			stats.Retards = append(stats.Retards, ref)
		}
	}
	stats.Count = DayCounts{
		Presents: len(stats.Presents),
		Absents:  len(stats.Absents),
		Retards:  len(stats.Retards),
		Total:    len(roster),
	}
	return stats
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "work_location",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit zone change", slog.String("action", action), slog.Any("error", err))
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := shared.ErrorCode(err); code != "" {
		return code
	}
	var appErr *shared.Error
	if errors.As(err, &appErr) {
		return "rejected"
	}
	return "error"
}
