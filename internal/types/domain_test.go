package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayTruncatesToUTCCalendarDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 23:30 EST on Oct 3 is 04:30 UTC on Oct 4.
	in := time.Date(2025, 10, 3, 23, 30, 0, 0, est)

	got := Day(in)

	assert.Equal(t, time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestLocationValidate(t *testing.T) {
	assert.NoError(t, Location{Latitude: 90, Longitude: -180}.Validate())
	assert.NoError(t, Location{Latitude: 0, Longitude: 0}.Validate())

	err := Location{Latitude: 95, Longitude: 0}.Validate()
	require.Error(t, err)
	appErr, ok := err.(*AppError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeValidationInvalidLat, appErr.Code)

	err = Location{Latitude: 0, Longitude: -180.5}.Validate()
	require.Error(t, err)
	appErr, ok = err.(*AppError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeValidationInvalidLon, appErr.Code)
}

func TestObservationWindowSortsAndDeduplicates(t *testing.T) {
	d1 := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC)

	w := NewObservationWindow(Location{}, []Observation{
		{Date: d2, Channels: map[Channel]float64{ChannelTemp: 21}},
		{Date: d1, Channels: map[Channel]float64{ChannelTemp: 20}},
		// Duplicate day, later entry wins.
		{Date: d2.Add(6 * time.Hour), Channels: map[Channel]float64{ChannelTemp: 25}},
	})

	require.Equal(t, 2, w.Len())

	rows := w.Rows()
	assert.Equal(t, d1, rows[0].Date)
	assert.Equal(t, d2, rows[1].Date)

	v, ok := w.Value(d2, ChannelTemp)
	require.True(t, ok)
	assert.Equal(t, 25.0, v)
}

func TestObservationWindowAbsentLookups(t *testing.T) {
	d := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	w := NewObservationWindow(Location{}, []Observation{
		{Date: d, Channels: map[Channel]float64{ChannelTemp: 20}},
	})

	_, ok := w.At(d.AddDate(0, 0, 1))
	assert.False(t, ok)

	// Day present but channel absent.
	_, ok = w.Value(d, ChannelHumidity)
	assert.False(t, ok)
}

func TestRiskLevelRankOrdering(t *testing.T) {
	ordered := []RiskLevel{RiskMinimal, RiskLow, RiskModerate, RiskHigh, RiskExtreme}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank())
	}
	assert.Equal(t, -1, RiskLevel("bogus").Rank())
}

func TestCanonicalChannelsOrderStable(t *testing.T) {
	want := []Channel{"T2M", "T2M_MAX", "T2M_MIN", "PRECTOTCORR", "WS2M", "RH2M", "PS", "CLOUD_AMT"}
	assert.Equal(t, want, CanonicalChannels())
}
