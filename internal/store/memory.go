package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/i474232898/weather-etl/internal/weather"
)

var (
	// ErrNotFound is returned when a query matches no observations.
	ErrNotFound = errors.New("no weather data for query")
	// ErrUnknownLocation is returned when an observation references a missing location.
	ErrUnknownLocation = errors.New("observation references unknown location")
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// It enforces the same natural-key and foreign-key rules as SQLStore.
type MemoryStore struct {
	mu sync.RWMutex

	locations    []weather.Location
	byKey        map[string]int64
	observations []weather.Observation

	nextLocationID    int64
	nextObservationID int64
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.locations = nil
	s.byKey = make(map[string]int64)
	s.observations = nil
	s.nextLocationID = 1
	s.nextObservationID = 1
}

// RecreateTables discards every location and observation.
func (s *MemoryStore) RecreateTables(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// SeedLocations appends locations whose natural key is not present yet.
func (s *MemoryStore) SeedLocations(ctx context.Context, locs []weather.Location) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, l := range locs {
		if _, ok := s.byKey[l.Key()]; ok {
			continue
		}
		l.ID = s.nextLocationID
		s.nextLocationID++
		s.byKey[l.Key()] = l.ID
		s.locations = append(s.locations, l)
		inserted++
	}
	return inserted, nil
}

// ListLocations returns locations ordered by id.
func (s *MemoryStore) ListLocations(ctx context.Context) ([]weather.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]weather.Location(nil), s.locations...), nil
}

// InsertObservations appends all rows or none of them.
func (s *MemoryStore) InsertObservations(ctx context.Context, obs []weather.Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		if s.location(o.LocationID) == nil {
			return ErrUnknownLocation
		}
	}
	for _, o := range obs {
		o.ID = s.nextObservationID
		s.nextObservationID++
		o.ObservedAt = o.ObservedAt.UTC()
		o.City, o.Country = "", ""
		s.observations = append(s.observations, o)
	}
	return nil
}

// QueryObservations returns matching observations ordered by obs_ts then id.
func (s *MemoryStore) QueryObservations(ctx context.Context, filter weather.ObservationFilter) ([]weather.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cities := make(map[string]bool, len(filter.Cities))
	for _, c := range filter.Cities {
		cities[c] = true
	}

	var result []weather.Observation
	for _, o := range s.observations {
		loc := s.location(o.LocationID)
		if len(cities) > 0 && !cities[loc.City] {
			continue
		}
		if !filter.From.IsZero() && o.ObservedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && o.ObservedAt.After(filter.To) {
			continue
		}
		o.City, o.Country = loc.City, loc.Country
		result = append(result, o)
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].ObservedAt.Equal(result[j].ObservedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].ObservedAt.Before(result[j].ObservedAt)
	})
	return result, nil
}

func (s *MemoryStore) location(id int64) *weather.Location {
	for i := range s.locations {
		if s.locations[i].ID == id {
			return &s.locations[i]
		}
	}
	return nil
}
