package attendance

import (
	"time"

	"github.com/sahel-erp/sahel-erp/internal/platform/httpx"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// DefaultRadius is the geofence radius in metres used for new zones and
// for zones stored without a positive radius.
const DefaultRadius = 100

// Zone types.
const (
	ZoneBureau   = "bureau"
	ZoneChantier = "chantier"
)

// Machine-readable error codes.
const (
	CodeZoneNameRequired = httpx.CodeZoneNameRequired
	CodeMustCheckIn      = "must_check_in"
)

var (
	// ErrZoneNameRequired signals that the point matched no zone and no name was given.
	ErrZoneNameRequired = shared.NewError(shared.ErrValidation, CodeZoneNameRequired, "Aucune zone trouvée, veuillez saisir un nom.")
	// ErrZoneNameTaken signals that a zone with the proposed name already exists.
	ErrZoneNameTaken = shared.NewError(shared.ErrConflict, "zone_name_taken", "Ce nom existe déjà.")
	// ErrAlreadyCheckedIn signals a second check-in on the same day.
	ErrAlreadyCheckedIn = shared.NewError(shared.ErrConflict, "already_checked_in", "Déjà pointé aujourd'hui")
	// ErrMustCheckIn signals a check-out without a check-in.
	ErrMustCheckIn = shared.NewError(shared.ErrConflict, CodeMustCheckIn, "Vous devez d'abord pointer votre entrée")
	// ErrAlreadyCheckedOut signals a second check-out on the same day.
	ErrAlreadyCheckedOut = shared.NewError(shared.ErrConflict, "already_checked_out", "Déjà pointé la sortie aujourd'hui")
	// ErrZoneMismatch signals a check-out from another zone than the check-in.
	ErrZoneMismatch = shared.NewError(shared.ErrPolicy, "zone_mismatch", "Zone de sortie différente de l'entrée.")
	// ErrZoneNotFound signals an unknown zone id.
	ErrZoneNotFound = shared.NewError(shared.ErrNotFound, "zone_not_found", "Zone de travail introuvable")

	errMissingCoordinates = shared.NewError(shared.ErrValidation, "missing_coordinates", "Coordonnées manquantes")
	errBadCoordinates     = shared.NewError(shared.ErrValidation, "invalid_coordinates", "Coordonnées invalides")
	errMissingLocation    = shared.NewError(shared.ErrValidation, "missing_location", "Zone de sortie manquante")
	errBadDate            = shared.NewError(shared.ErrValidation, "invalid_date", "Format de date invalide (YYYY-MM-DD).")
)

// Zone is a circular work location.
type Zone struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Radius    int       `json:"radius"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// EffectiveRadius returns the radius used for matching.
func (z Zone) EffectiveRadius() float64 {
	if z.Radius <= 0 {
		return DefaultRadius
	}
	return float64(z.Radius)
}

// Attendance is one user's record for one business day.
type Attendance struct {
	ID               int64
	UserID           int64
	Date             time.Time
	CheckIn          *time.Time
	CheckOut         *time.Time
	CheckInLocation  string
	CheckOutLocation string
	CheckInLat       *float64
	CheckInLng       *float64
	CheckOutLat      *float64
	CheckOutLng      *float64
	WorkLocationID   *int64
	Status           string
	Notes            string
}

// TotalHours is the worked duration in hours, 0 until checked out.
func (a Attendance) TotalHours() float64 {
	if a.CheckIn == nil || a.CheckOut == nil {
		return 0
	}
	return a.CheckOut.Sub(*a.CheckIn).Hours()
}

// CheckInInput is the payload of POST /attendance/check_in.
type CheckInInput struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LocationName string   `json:"location_name"`
}

// CheckOutInput is the payload of POST /attendance/check_out.
type CheckOutInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Location  string   `json:"location"`
}

// CheckInResult describes a successful check-in.
type CheckInResult struct {
	Zone        Zone      `json:"zone"`
	ZoneCreated bool      `json:"zone_created"`
	CheckIn     time.Time `json:"check_in"`
	Distance    float64   `json:"distance_m"`
}

// CheckOutResult describes a successful check-out.
type CheckOutResult struct {
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Location   string    `json:"location"`
	TotalHours float64   `json:"total_hours"`
}

// HistoryEntry is one row of an attendance listing.
type HistoryEntry struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id,omitempty"`
	UserName         string     `json:"user_name,omitempty"`
	Date             string     `json:"date"`
	CheckIn          *time.Time `json:"check_in"`
	CheckOut         *time.Time `json:"check_out"`
	CheckInLocation  string     `json:"check_in_location"`
	CheckOutLocation string     `json:"check_out_location"`
	TotalHours       float64    `json:"total_hours"`
}

// HistoryFilter narrows attendance listings.
type HistoryFilter struct {
	UserID int64
	Date   *time.Time
	Page   shared.PageRequest
}

// PersonRef names a user in the daily statistics.
type PersonRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DayCounts summarises a day.
type DayCounts struct {
	Presents int `json:"presents"`
	Absents  int `json:"absents"`
	Retards  int `json:"retards"`
	Total    int `json:"total"`
}

// DailyStats classifies active users for one day. Retards is a subset of Presents.
type DailyStats struct {
	Date     string      `json:"date"`
	Presents []PersonRef `json:"presents"`
	Absents  []PersonRef `json:"absents"`
	Retards  []PersonRef `json:"retards"`
	Count    DayCounts   `json:"count"`
}

// RosterEntry is an active user with their check-in for a day, if any.
type RosterEntry struct {
	UserID  int64
	Nom     string
	Prenom  string
	CheckIn *time.Time
}

// ZoneInput is the payload of POST /work_locations.
type ZoneInput struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Type      string   `json:"type" validate:"omitempty,oneof=bureau chantier"`
	Address   string   `json:"address" validate:"max=255"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Radius    int      `json:"radius" validate:"gte=0,lte=100000"`
}

// ZonePatch is the payload of PATCH /work_locations/{id}.
type ZonePatch struct {
	IsActive *bool `json:"is_active" validate:"required"`
}
