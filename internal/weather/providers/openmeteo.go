package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-etl/internal/weather"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  client,
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

const openMeteoCurrent = "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,wind_speed_10m,cloud_cover,weather_code"

type openMeteoPayload struct {
	Current *struct {
		Time                *int64   `json:"time" validate:"required"`
		Temperature         *float64 `json:"temperature_2m" validate:"required"`
		ApparentTemperature *float64 `json:"apparent_temperature" validate:"required"`
		RelativeHumidity    *float64 `json:"relative_humidity_2m" validate:"required"`
		SurfacePressure     *float64 `json:"surface_pressure" validate:"required"`
		WindSpeed           *float64 `json:"wind_speed_10m" validate:"required"`
		CloudCover          *float64 `json:"cloud_cover" validate:"required"`
		WeatherCode         *int     `json:"weather_code" validate:"required"`
	} `json:"current" validate:"required"`
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	values.Set("current", openMeteoCurrent)
	values.Set("wind_speed_unit", "ms")
	values.Set("timeformat", "unixtime")
	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())

	var payload openMeteoPayload
	if err := getJSON(ctx, p.client, p.circuit, u, &payload); err != nil {
		return weather.Reading{}, fetchFailed(p.name, err)
	}
	cur := payload.Current
	main, desc := mapOpenMeteoCondition(*cur.WeatherCode)

	return weather.Reading{
		ProviderName: p.name,
		ObservedAt:   time.Unix(*cur.Time, 0).UTC(),
		TemperatureC: *cur.Temperature,
		FeelsLikeC:   *cur.ApparentTemperature,
		HumidityPct:  *cur.RelativeHumidity,
		PressureHpa:  *cur.SurfacePressure,
		WindSpeedMS:  *cur.WindSpeed,
		CloudsPct:    *cur.CloudCover,
		Main:         main,
		Description:  desc,
	}, nil
}

// mapOpenMeteoCondition maps a WMO weather code onto a main category and description.
func mapOpenMeteoCondition(code int) (weather.Condition, string) {
	switch {
	case code == 0:
		return weather.ConditionClear, "clear sky"
	case code == 1:
		return weather.ConditionClouds, "mainly clear"
	case code == 2:
		return weather.ConditionClouds, "partly cloudy"
	case code == 3:
		return weather.ConditionClouds, "overcast"
	case code == 45 || code == 48:
		return weather.ConditionFog, "fog"
	case code >= 51 && code <= 57:
		return weather.ConditionDrizzle, "drizzle"
	case code >= 61 && code <= 67:
		return weather.ConditionRain, "rain"
	case code >= 80 && code <= 82:
		return weather.ConditionRain, "rain showers"
	case code >= 71 && code <= 77:
		return weather.ConditionSnow, "snow"
	case code == 85 || code == 86:
		return weather.ConditionSnow, "snow showers"
	case code >= 95:
		return weather.ConditionThunderstorm, "thunderstorm"
	default:
		return weather.ConditionUnknown, "unknown"
	}
}
