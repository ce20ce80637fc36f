package attendance

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius (IUGG).
const EarthRadiusMeters = 6371008.8

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether p is a finite coordinate within range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return angle.Radians() * EarthRadiusMeters
}

// Match is a zone containing a point.
type Match struct {
	Zone     Zone
	Distance float64
}

// MatchZones returns the zones whose circle contains p, nearest centre
// first, ties broken by lowest id.
func MatchZones(p Point, zones []Zone) []Match {
	var matches []Match
	for _, z := range zones {
		d := DistanceMeters(p, Point{Lat: z.Latitude, Lng: z.Longitude})
		if d <= z.EffectiveRadius() {
			matches = append(matches, Match{Zone: z, Distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Zone.ID < matches[j].Zone.ID
	})
	return matches
}

// ResolveZone returns the zone a check-in at p binds to.
func ResolveZone(p Point, zones []Zone) (Match, bool) {
	matches := MatchZones(p, zones)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
