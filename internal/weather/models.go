package weather

import (
	"time"
)

// Condition is the primary weather category stored in fact_weather.weather_main.
// Values follow the OpenWeatherMap vocabulary so every provider maps onto it.
type Condition string

const (
	ConditionUnknown      Condition = "Unknown"
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
	ConditionRain         Condition = "Rain"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionSnow         Condition = "Snow"
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionMist         Condition = "Mist"
	ConditionFog          Condition = "Fog"
)

// Location is one monitored city (a dim_location row).
// City and Country form the natural key.
type Location struct {
	ID      int64   `json:"id"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Key returns the natural key of the location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// DefaultLocations is the fixed city list seeded into dim_location.
var DefaultLocations = []Location{
	{City: "Bengaluru", Country: "IN", Lat: 12.9716, Lon: 77.5946},
	{City: "London", Country: "GB", Lat: 51.5072, Lon: -0.1276},
	{City: "New York", Country: "US", Lat: 40.7128, Lon: -74.0060},
}

// Reading is the flat record returned by a provider for one current-weather call.
type Reading struct {
	ProviderName string
	ObservedAt   time.Time // always UTC

	TemperatureC float64
	FeelsLikeC   float64
	HumidityPct  float64
	PressureHpa  float64
	WindSpeedMS  float64
	CloudsPct    float64
	Main         Condition
	Description  string
}

// Observation is one fact_weather row. City and Country are filled on reads.
type Observation struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"locationId"`
	City       string    `json:"city,omitempty"`
	Country    string    `json:"country,omitempty"`
	ObservedAt time.Time `json:"obsTs"` // always UTC

	TemperatureC float64   `json:"tempC"`
	FeelsLikeC   float64   `json:"feelsLikeC"`
	HumidityPct  float64   `json:"humidityPct"`
	PressureHpa  float64   `json:"pressureHpa"`
	WindSpeedMS  float64   `json:"windSpeedMs"`
	Main         Condition `json:"weatherMain"`
	Description  string    `json:"weatherDesc"`
	CloudsPct    float64   `json:"cloudsPct"`
}

// NewObservation builds the row for loc from a provider reading.
func NewObservation(loc Location, r Reading) Observation {
	return Observation{
		LocationID:   loc.ID,
		City:         loc.City,
		Country:      loc.Country,
		ObservedAt:   r.ObservedAt.UTC(),
		TemperatureC: r.TemperatureC,
		FeelsLikeC:   r.FeelsLikeC,
		HumidityPct:  r.HumidityPct,
		PressureHpa:  r.PressureHpa,
		WindSpeedMS:  r.WindSpeedMS,
		Main:         r.Main,
		Description:  r.Description,
		CloudsPct:    r.CloudsPct,
	}
}

// ObservationFilter selects observations by city name and an inclusive time range.
// Empty Cities means all cities; zero From/To leave that side unbounded.
type ObservationFilter struct {
	Cities []string
	From   time.Time
	To     time.Time
}

// Backdate synthesizes hours+1 readings from one live reading, stepping the
// observation time back one hour at a time: T, T-1h, ... T-hours, all in UTC.
// Every weather value is copied unchanged; only the timestamp differs.
func Backdate(r Reading, hours int) []Reading {
	if hours < 0 {
		hours = 0
	}
	base := r.ObservedAt.UTC()
	out := make([]Reading, 0, hours+1)
	for h := 0; h <= hours; h++ {
		snap := r
		snap.ObservedAt = base.Add(-time.Duration(h) * time.Hour)
		out = append(out, snap)
	}
	return out
}
