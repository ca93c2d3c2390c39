package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-etl/internal/weather"
)

func TestMemoryStoreSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n, err := s.SeedLocations(ctx, weather.DefaultLocations)
	require.NoError(t, err)
	assert.Equal(t, len(weather.DefaultLocations), n)

	n, err = s.SeedLocations(ctx, weather.DefaultLocations)
	require.NoError(t, err)
	assert.Zero(t, n)

	locs, err := s.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, len(weather.DefaultLocations))
	for i, l := range locs {
		assert.Equal(t, int64(i+1), l.ID)
		assert.Equal(t, weather.DefaultLocations[i].Key(), l.Key())
	}
}

func TestMemoryStoreRecreateClearsEverything(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.SeedLocations(ctx, weather.DefaultLocations[:1])
	require.NoError(t, err)
	require.NoError(t, s.InsertObservations(ctx, []weather.Observation{{LocationID: 1, ObservedAt: time.Now()}}))

	require.NoError(t, s.RecreateTables(ctx))

	locs, err := s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, locs)
	_, err = s.QueryObservations(ctx, weather.ObservationFilter{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SeedLocations(ctx, weather.DefaultLocations[:1])
	require.NoError(t, err)
	locs, _ = s.ListLocations(ctx)
	assert.Equal(t, int64(1), locs[0].ID, "ids restart after recreate")
}

func TestMemoryStoreRejectsUnknownLocation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.SeedLocations(ctx, weather.DefaultLocations[:1])
	require.NoError(t, err)

	err = s.InsertObservations(ctx, []weather.Observation{
		{LocationID: 1, ObservedAt: time.Now()},
		{LocationID: 42, ObservedAt: time.Now()},
	})
	require.True(t, errors.Is(err, ErrUnknownLocation))

	_, err = s.QueryObservations(ctx, weather.ObservationFilter{})
	assert.ErrorIs(t, err, ErrNotFound, "no partial batch is kept")
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.SeedLocations(ctx, weather.DefaultLocations)
	require.NoError(t, err)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for id := int64(1); id <= 3; id++ {
		rows := []weather.Observation{
			{LocationID: id, ObservedAt: t0},
			{LocationID: id, ObservedAt: t0.Add(-2 * time.Hour)},
			{LocationID: id, ObservedAt: t0.Add(-time.Hour)},
		}
		require.NoError(t, s.InsertObservations(ctx, rows))
	}

	all, err := s.QueryObservations(ctx, weather.ObservationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 9)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].ObservedAt.Before(all[i-1].ObservedAt), "ordered by obs_ts")
	}

	london, err := s.QueryObservations(ctx, weather.ObservationFilter{
		Cities: []string{"London"},
		From:   t0.Add(-time.Hour),
		To:     t0,
	})
	require.NoError(t, err)
	require.Len(t, london, 2)
	for _, o := range london {
		assert.Equal(t, "London", o.City)
		assert.Equal(t, "GB", o.Country)
	}

	_, err = s.QueryObservations(ctx, weather.ObservationFilter{Cities: []string{"Paris"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	_, err := s.SeedLocations(ctx, weather.DefaultLocations)
	assert.ErrorIs(t, err, context.Canceled)
}
