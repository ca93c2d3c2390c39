package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackdate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	r := Reading{
		ObservedAt:   time.Date(2025, 3, 10, 17, 30, 0, 0, ist),
		TemperatureC: 29.5,
		HumidityPct:  40,
		Main:         ConditionClear,
	}

	out := Backdate(r, 25)
	require.Len(t, out, 26)

	base := r.ObservedAt.UTC()
	for h, snap := range out {
		assert.Equal(t, time.UTC, snap.ObservedAt.Location())
		assert.True(t, snap.ObservedAt.Equal(base.Add(-time.Duration(h)*time.Hour)), "hour %d", h)
		assert.Equal(t, r.TemperatureC, snap.TemperatureC)
		assert.Equal(t, r.HumidityPct, snap.HumidityPct)
		assert.Equal(t, r.Main, snap.Main)
	}
}

func TestBackdateZeroAndNegative(t *testing.T) {
	r := Reading{ObservedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	assert.Len(t, Backdate(r, 0), 1)
	assert.Len(t, Backdate(r, -4), 1)
}

func TestNewObservation(t *testing.T) {
	loc := Location{ID: 7, City: "London", Country: "GB"}
	r := Reading{ObservedAt: time.Date(2025, 1, 1, 1, 0, 0, 0, time.FixedZone("X", 3600)), PressureHpa: 1001, Description: "light rain"}

	o := NewObservation(loc, r)
	assert.Equal(t, int64(7), o.LocationID)
	assert.Equal(t, "London", o.City)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), o.ObservedAt)
	assert.Equal(t, 1001.0, o.PressureHpa)
	assert.Equal(t, "light rain", o.Description)
	assert.Equal(t, "London:GB", loc.Key())
}
