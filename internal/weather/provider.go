package weather

import (
	"context"
	"errors"
)

// ErrFetchFailed is the single error kind a Provider surfaces, whatever the cause
// (network, HTTP status, malformed or incomplete payload, open circuit).
var ErrFetchFailed = errors.New("fetch failed")

// ErrNoProvider is returned by the loaders of a read-only Service.
var ErrNoProvider = errors.New("no weather provider configured")

// Provider abstracts a current-weather source (OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (Reading, error)
}

// Store is the contract of the relational store owning dim_location and fact_weather.
type Store interface {
	// RecreateTables drops fact_weather then dim_location and creates both anew.
	RecreateTables(ctx context.Context) error
	// SeedLocations inserts locations, skipping natural-key duplicates.
	// It returns the number of rows actually inserted.
	SeedLocations(ctx context.Context, locs []Location) (int, error)
	ListLocations(ctx context.Context) ([]Location, error)
	// InsertObservations writes all rows atomically.
	InsertObservations(ctx context.Context, obs []Observation) error
	// QueryObservations returns matching rows ordered by obs_ts.
	QueryObservations(ctx context.Context, filter ObservationFilter) ([]Observation, error)
}
