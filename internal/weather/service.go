package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-etl/internal/metrics"
)

// Mode identifies which loader produced a run.
type Mode string

const (
	ModeBackfill Mode = "backfill"
	ModeLive     Mode = "live"
)

// CityFailure records a city that produced no rows in a run.
type CityFailure struct {
	Location Location
	Err      error
}

// RunResult is the typed outcome of one loader run.
type RunResult struct {
	RunID      string
	Mode       Mode
	StartedAt  time.Time
	FinishedAt time.Time
	Inserted   int
	Cities     int
	Failures   []CityFailure
}

// Err joins the per-city failures, or returns nil when every city succeeded.
func (r RunResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Location.Key(), f.Err))
	}
	return errors.Join(errs...)
}

// Service runs the extract-transform-load steps against a Store.
type Service struct {
	store    Store
	provider Provider
	logger   *slog.Logger
	limiter  *rate.Limiter
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithThrottle enforces a minimum gap between provider calls. Zero disables it.
func WithThrottle(gap time.Duration) Option {
	return func(s *Service) {
		if gap <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(gap), 1)
	}
}

// NewService creates a new Service. A nil provider gives a read-only Service.
func NewService(store Store, provider Provider, opts ...Option) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		logger:   slog.Default(),
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecreateSchema drops and recreates dim_location and fact_weather.
func (s *Service) RecreateSchema(ctx context.Context) error {
	if err := s.store.RecreateTables(ctx); err != nil {
		return fmt.Errorf("recreate tables: %w", err)
	}
	s.logger.Info("tables dropped (if they existed) and recreated")
	return nil
}

// SeedLocations inserts locs into dim_location; repeated calls never duplicate a city.
func (s *Service) SeedLocations(ctx context.Context, locs []Location) error {
	inserted, err := s.store.SeedLocations(ctx, locs)
	if err != nil {
		return fmt.Errorf("seed locations: %w", err)
	}

	seeded, err := s.store.ListLocations(ctx)
	if err != nil {
		return fmt.Errorf("list seeded locations: %w", err)
	}
	for _, l := range seeded {
		s.logger.Debug("dim_location", "location_id", l.ID, "city", l.City, "country", l.Country, "lat", l.Lat, "lon", l.Lon)
	}
	s.logger.Info("seeded dim_location", "inserted", inserted, "total", len(seeded))
	return nil
}

// InsertBackdatedSnapshots fetches one live reading per city and stores hours+1
// copies of it, stepped back one hour at a time from the provider timestamp.
func (s *Service) InsertBackdatedSnapshots(ctx context.Context, hours int) (RunResult, error) {
	if hours < 0 {
		return RunResult{Mode: ModeBackfill}, fmt.Errorf("backfill hours must not be negative, got %d", hours)
	}
	return s.run(ctx, ModeBackfill, func(r Reading) []Reading {
		return Backdate(r, hours)
	})
}

// RunOnce fetches one live reading per city and stores exactly one row for each.
func (s *Service) RunOnce(ctx context.Context) (RunResult, error) {
	return s.run(ctx, ModeLive, func(r Reading) []Reading {
		return []Reading{r}
	})
}

// run is the single insertion path shared by the loaders. A failed fetch skips
// that city; a store failure aborts the remaining cities. Each city commits on its own.
func (s *Service) run(ctx context.Context, mode Mode, expand func(Reading) []Reading) (result RunResult, err error) {
	result = RunResult{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}
	log := s.logger.With("run_id", result.RunID, "mode", string(mode))
	if s.provider == nil {
		return result, ErrNoProvider
	}

	defer func() {
		result.FinishedAt = time.Now().UTC()
		metrics.RunDuration.WithLabelValues(string(mode)).Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
		metrics.Runs.WithLabelValues(string(mode), runStatus(result, err)).Inc()
	}()

	locs, err := s.store.ListLocations(ctx)
	if err != nil {
		return result, fmt.Errorf("list locations: %w", err)
	}
	if len(locs) == 0 {
		log.Warn("no cities found in dim_location; skipping run")
		return result, nil
	}
	result.Cities = len(locs)

	for _, loc := range locs {
		if err := s.wait(ctx); err != nil {
			return result, err
		}

		reading, fetchErr := s.provider.Fetch(ctx, loc)
		if fetchErr != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.Error("fetch failed", "location_id", loc.ID, "city", loc.City, "error", fetchErr)
			metrics.FetchFailures.WithLabelValues(s.provider.Name()).Inc()
			result.Failures = append(result.Failures, CityFailure{Location: loc, Err: fetchErr})
			continue
		}

		readings := expand(reading)
		rows := make([]Observation, 0, len(readings))
		for _, r := range readings {
			rows = append(rows, NewObservation(loc, r))
		}
		if err := s.store.InsertObservations(ctx, rows); err != nil {
			return result, fmt.Errorf("insert observations for %s: %w", loc.Key(), err)
		}
		result.Inserted += len(rows)
		metrics.RowsInserted.WithLabelValues(string(mode)).Add(float64(len(rows)))
	}

	log.Info("loaded observations",
		"rows", result.Inserted,
		"cities", result.Cities,
		"failed_cities", len(result.Failures),
		"at", time.Now().UTC().Format(time.DateTime),
	)
	return result, result.Err()
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return ctx.Err()
	}
	return s.limiter.Wait(ctx)
}

func runStatus(r RunResult, err error) string {
	switch {
	case err == nil:
		return "success"
	case r.Inserted > 0:
		return "partial"
	default:
		return "failed"
	}
}

// Locations returns every seeded location.
func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	return s.store.ListLocations(ctx)
}

// Observations delegates to the underlying store.
func (s *Service) Observations(ctx context.Context, filter ObservationFilter) ([]Observation, error) {
	return s.store.QueryObservations(ctx, filter)
}
