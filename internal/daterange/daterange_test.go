package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gtool/internal/scheduler"
)

// 2024-06-05 is a Wednesday.
var now = time.Date(2024, 6, 5, 14, 30, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	tests := []struct {
		expr      string
		wantStart string
		wantEnd   string
	}{
		{"", "2024-06-05", "2024-06-05"},
		{"today", "2024-06-05", "2024-06-05"},
		{"Today", "2024-06-05", "2024-06-05"},
		{"today+1", "2024-06-05", "2024-06-06"},
		{"tomorrow", "2024-06-06", "2024-06-06"},
		{"tomorrow+2", "2024-06-06", "2024-06-08"},
		{"wednesday", "2024-06-05", "2024-06-05"},
		{"thursday", "2024-06-06", "2024-06-06"},
		{"thursday+1", "2024-06-06", "2024-06-07"},
		{"monday", "2024-06-10", "2024-06-10"},
		{"tuesday", "2024-06-11", "2024-06-11"},
		{"2024-07-01", "2024-07-01", "2024-07-01"},
		{"2024-07-01+4", "2024-07-01", "2024-07-05"},
		{"today+0", "2024-06-05", "2024-06-05"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r, err := Parse(tt.expr, time.UTC, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, r.Start.Format(time.DateOnly))
			assert.Equal(t, tt.wantEnd, r.End.Format(time.DateOnly))
			assert.Equal(t, "00:00:00", r.Start.Format(time.TimeOnly))
			assert.Equal(t, "23:59:59.999999999", r.End.Format("15:04:05.000000000"))
			assert.Equal(t, "00:00:00", r.Until().Format(time.TimeOnly))
			assert.Equal(t, tt.wantEnd, r.Until().AddDate(0, 0, -1).Format(time.DateOnly))
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, expr := range []string{"noday+1", "today+x", "today+-1", "2024-13-01", "next week", "+3"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse(expr, time.UTC, now)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}

	_, err := Parse("today", nil, now)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestParseUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	// 03:00 UTC on the 5th is still the 4th at UTC-8.
	r, err := Parse("today", loc, time.Date(2024, 6, 5, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-06-04", r.Start.Format(time.DateOnly))
	assert.Equal(t, loc, r.Start.Location())
}

func TestParseCoversLastSecond(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	// 2024-03-10 is 23 hours long in Los Angeles.
	r, err := Parse("2024-03-09+1", loc, now)
	require.NoError(t, err)

	lastSecond := time.Date(2024, 3, 10, 23, 59, 59, 500_000_000, loc)
	assert.False(t, lastSecond.After(r.End))
	assert.True(t, r.Until().Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, loc)))
	assert.Equal(t, 2, r.Days())
}

func TestRangeDays(t *testing.T) {
	r, err := Parse("monday+6", time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, 7, r.Days())
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("08:30")
	require.NoError(t, err)
	assert.Equal(t, scheduler.TimeOfDay{Hour: 8, Minute: 30}, got)

	got, err = ParseTimeOfDay(" 18:00 ")
	require.NoError(t, err)
	assert.Equal(t, scheduler.TimeOfDay{Hour: 18}, got)

	for _, bad := range []string{"8am", "25:00", "12:60", ""} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}
