package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahel-erp/sahel-erp/internal/attendance"
)

type zoneRow struct {
	Name      string
	Type      string
	Address   string
	Latitude  float64
	Longitude float64
	Radius    int
}

// parseZones reads name,type,address,latitude,longitude,radius rows. A
// header row starting with "name" is skipped.
func parseZones(r io.Reader) ([]zoneRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 6
	var rows []zoneRow
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}
		row, err := parseZoneRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseZoneRecord(record []string) (zoneRow, error) {
	row := zoneRow{
		Name:    strings.TrimSpace(record[0]),
		Type:    strings.TrimSpace(record[1]),
		Address: strings.TrimSpace(record[2]),
	}
	if row.Name == "" {
		return row, errors.New("name required")
	}
	switch row.Type {
	case "":
		row.Type = attendance.ZoneChantier
	case attendance.ZoneBureau, attendance.ZoneChantier:
	default:
		return row, fmt.Errorf("invalid type %q", row.Type)
	}
	var err error
	if row.Latitude, err = strconv.ParseFloat(strings.TrimSpace(record[3]), 64); err != nil || row.Latitude < -90 || row.Latitude > 90 {
		return row, fmt.Errorf("invalid latitude %q", record[3])
	}
	if row.Longitude, err = strconv.ParseFloat(strings.TrimSpace(record[4]), 64); err != nil || row.Longitude < -180 || row.Longitude > 180 {
		return row, fmt.Errorf("invalid longitude %q", record[4])
	}
	row.Radius = 100
	if raw := strings.TrimSpace(record[5]); raw != "" {
		if row.Radius, err = strconv.Atoi(raw); err != nil || row.Radius <= 0 {
			return row, fmt.Errorf("invalid radius %q", raw)
		}
	}
	return row, nil
}

func importZones(ctx context.Context, pool *pgxpool.Pool, r io.Reader) (int, error) {
	rows, err := parseZones(r)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, z := range rows {
		tag, err := pool.Exec(ctx, `
			INSERT INTO work_locations (name, name_key, type, address, latitude, longitude, radius, is_active)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, TRUE)
			ON CONFLICT (name_key) DO NOTHING`,
			z.Name, attendance.NameKey(z.Name), z.Type, z.Address, z.Latitude, z.Longitude, z.Radius)
		if err != nil {
			return imported, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		imported += int(tag.RowsAffected())
	}
	return imported, nil
}
