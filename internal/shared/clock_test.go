package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("09:15")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 9, Minute: 15}, c)
	assert.Equal(t, 555, c.Minutes())
	assert.Equal(t, "09:15", c.String())

	for _, bad := range []string{"", "9h15", "24:00", "12:60", "12:5x"} {
		_, err := ParseClockTime(bad)
		assert.Errorf(t, err, "input %q", bad)
	}
}

func TestClockTimeIsExceededBy(t *testing.T) {
	cutoff := MustClockTime("09:15")
	utc := time.UTC
	day := func(h, m, s int) time.Time { return time.Date(2024, 3, 4, h, m, s, 0, utc) }

	assert.False(t, cutoff.IsExceededBy(day(9, 0, 0), utc))
	assert.False(t, cutoff.IsExceededBy(day(9, 15, 0), utc))
	assert.True(t, cutoff.IsExceededBy(day(9, 15, 1), utc))
	assert.True(t, cutoff.IsExceededBy(day(10, 0, 0), utc))

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	// 08:30 UTC is 09:30 in Paris in March.
	assert.True(t, cutoff.IsExceededBy(day(8, 30, 0), paris))
}

func TestBusinessDate(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	ts := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), BusinessDate(ts, tokyo))
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), BusinessDate(ts, time.UTC))
}
