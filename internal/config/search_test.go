package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gtool/internal/daterange"
	"github.com/teemow/gtool/internal/scheduler"
)

func TestSearchParametersDefaults(t *testing.T) {
	cfg := Default()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	now := time.Date(2024, 3, 4, 15, 0, 0, 0, loc)

	params, err := cfg.SearchParameters(SearchRequest{}, now)
	require.NoError(t, err)

	assert.Equal(t, DefaultDuration, params.Duration)
	assert.Equal(t, []string{"primary"}, params.CalendarIDs)
	assert.Equal(t, scheduler.TimeOfDay{Hour: 8}, params.AvailabilityStart)
	assert.Equal(t, scheduler.TimeOfDay{Hour: 18}, params.AvailabilityEnd)
	assert.Equal(t, "America/Los_Angeles", params.Location.String())
	assert.True(t, params.Start.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, loc)))
}

func TestSearchParametersOverrides(t *testing.T) {
	cfg := Default()
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	params, err := cfg.SearchParameters(SearchRequest{
		Range:             "tomorrow+1",
		Duration:          time.Hour,
		AvailabilityStart: "10:00",
		AvailabilityEnd:   "12:30",
		TimeZone:          "Europe/Berlin",
		CalendarIDs:       []string{"a@example.com", "b@example.com"},
	}, now)
	require.NoError(t, err)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, params.Duration)
	assert.Equal(t, scheduler.TimeOfDay{Hour: 12, Minute: 30}, params.AvailabilityEnd)
	assert.Len(t, params.CalendarIDs, 2)
	assert.True(t, params.Start.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, berlin)))
	assert.Equal(t, 6, params.End.Day())

	// The receiver is not modified by overrides.
	assert.Equal(t, "America/Los_Angeles", cfg.TimeZone)
}

func TestSearchParametersErrors(t *testing.T) {
	cfg := Default()
	now := time.Now()

	tests := []struct {
		name    string
		req     SearchRequest
		wantErr error
	}{
		{"bad zone", SearchRequest{TimeZone: "Mars/Base"}, ErrInvalidConfig},
		{"bad availability", SearchRequest{AvailabilityStart: "25:00"}, ErrInvalidConfig},
		{"inverted availability", SearchRequest{AvailabilityStart: "17:00", AvailabilityEnd: "09:00"}, ErrInvalidConfig},
		{"bad range", SearchRequest{Range: "someday"}, daterange.ErrInvalidRange},
		{"negative duration", SearchRequest{Duration: -time.Minute}, scheduler.ErrInvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cfg.SearchParameters(tt.req, now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
