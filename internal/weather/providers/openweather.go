package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-etl/internal/common"
	"github.com/i474232898/weather-etl/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		client:  client,
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// owmPayload lists the fields of /data/2.5/weather a reading needs; any missing
// one fails validation.
type owmPayload struct {
	Dt   *int64 `json:"dt" validate:"required"`
	Main *struct {
		Temp      *float64 `json:"temp" validate:"required"`
		FeelsLike *float64 `json:"feels_like" validate:"required"`
		Humidity  *float64 `json:"humidity" validate:"required"`
		Pressure  *float64 `json:"pressure" validate:"required"`
	} `json:"main" validate:"required"`
	Wind *struct {
		Speed *float64 `json:"speed" validate:"required"`
	} `json:"wind" validate:"required"`
	Clouds *struct {
		All *float64 `json:"all" validate:"required"`
	} `json:"clouds" validate:"required"`
	Weather []struct {
		Main        string `json:"main" validate:"required"`
		Description string `json:"description"`
	} `json:"weather" validate:"required,min=1,dive"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fetchFailed(p.name, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	values.Set("units", "metric")
	values.Set("appid", p.apiKey)
	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())

	var payload owmPayload
	if err := getJSON(ctx, p.client, p.circuit, u, &payload); err != nil {
		return weather.Reading{}, fetchFailed(p.name, err)
	}

	return weather.Reading{
		ProviderName: p.name,
		ObservedAt:   time.Unix(*payload.Dt, 0).UTC(),
		TemperatureC: *payload.Main.Temp,
		FeelsLikeC:   *payload.Main.FeelsLike,
		HumidityPct:  *payload.Main.Humidity,
		PressureHpa:  *payload.Main.Pressure,
		WindSpeedMS:  *payload.Wind.Speed,
		CloudsPct:    *payload.Clouds.All,
		Main:         weather.Condition(payload.Weather[0].Main),
		Description:  common.NormalizeText(payload.Weather[0].Description),
	}, nil
}
