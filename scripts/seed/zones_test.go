package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseZonesSkipsHeaderAndDefaults(t *testing.T) {
	input := `name,type,address,latitude,longitude,radius
Siège,bureau,"Rue 10, Dakar",14.700,-17.451,150
Chantier Ouakam,,,14.722,-17.490,
`
	rows, err := parseZones(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, zoneRow{Name: "Siège", Type: "bureau", Address: "Rue 10, Dakar", Latitude: 14.7, Longitude: -17.451, Radius: 150}, rows[0])
	require.Equal(t, "chantier", rows[1].Type)
	require.Equal(t, 100, rows[1].Radius)
}

func TestParseZonesRejectsBadCoordinates(t *testing.T) {
	_, err := parseZones(strings.NewReader("Nord,chantier,,91,10,50\n"))
	require.ErrorContains(t, err, "line 1: invalid latitude")

	_, err = parseZones(strings.NewReader("Nord,chantier,,10,10,-5\n"))
	require.ErrorContains(t, err, "invalid radius")

	_, err = parseZones(strings.NewReader("Nord,depot,,10,10,50\n"))
	require.ErrorContains(t, err, "invalid type")
}

func TestJoinPermissions(t *testing.T) {
	require.Equal(t, "attendance,clients", joinPermissions([]string{"attendance", "clients"}))
	require.Equal(t, "all", joinPermissions(defaultRoles[0].permissions))
}
