package attendance

import (
	"context"
)

// ListZones returns active zones, or all of them when includeInactive is set.
func (s *Service) ListZones(ctx context.Context, includeInactive bool) ([]Zone, error) {
	var (
		zones []Zone
		err   error
	)
	if includeInactive {
		zones, err = s.repo.ListZones(ctx)
	} else {
		zones, err = s.repo.ListActiveZones(ctx)
	}
	if err != nil {
		return nil, err
	}
	if zones == nil {
		zones = []Zone{}
	}
	return zones, nil
}

// CreateZone registers a zone explicitly.
func (s *Service) CreateZone(ctx context.Context, actorID int64, in ZoneInput) (Zone, error) {
	if in.Latitude == nil || in.Longitude == nil {
		return Zone{}, errMissingCoordinates
	}
	p := Point{Lat: *in.Latitude, Lng: *in.Longitude}
	if !p.Valid() {
		return Zone{}, errBadCoordinates
	}
	name := CleanName(in.Name)
	if name == "" {
		return Zone{}, ErrZoneNameRequired
	}
	zoneType := in.Type
	if zoneType == "" {
		zoneType = ZoneBureau
	}
	radius := in.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	zone, err := s.repo.InsertZone(ctx, Zone{
		Name:      name,
		Type:      zoneType,
		Address:   CleanName(in.Address),
		Latitude:  p.Lat,
		Longitude: p.Lng,
		Radius:    radius,
		IsActive:  true,
	})
	if err != nil {
		return Zone{}, err
	}
	s.record(ctx, actorID, "zone.create", zone.ID, map[string]any{"name": zone.Name, "source": "admin"})
	return zone, nil
}

// SetZoneActive activates or deactivates a zone.
func (s *Service) SetZoneActive(ctx context.Context, actorID, id int64, active bool) (Zone, error) {
	zone, err := s.repo.SetZoneActive(ctx, id, active)
	if err != nil {
		return Zone{}, err
	}
	s.record(ctx, actorID, "zone.update", id, map[string]any{"is_active": active})
	return zone, nil
}

// DeleteZone removes a zone.
func (s *Service) DeleteZone(ctx context.Context, actorID, id int64) error {
	zone, err := s.repo.GetZone(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteZone(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "zone.delete", id, map[string]any{"name": zone.Name})
	return nil
}
