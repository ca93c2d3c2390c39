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

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/current.json",
		client:  client,
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIPayload struct {
	Current *struct {
		LastUpdatedEpoch *int64   `json:"last_updated_epoch" validate:"required"`
		TempC            *float64 `json:"temp_c" validate:"required"`
		FeelsLikeC       *float64 `json:"feelslike_c" validate:"required"`
		Humidity         *float64 `json:"humidity" validate:"required"`
		PressureMb       *float64 `json:"pressure_mb" validate:"required"`
		WindKph          *float64 `json:"wind_kph" validate:"required"`
		Cloud            *float64 `json:"cloud" validate:"required"`
		Condition        *struct {
			Text string `json:"text" validate:"required"`
		} `json:"condition" validate:"required"`
	} `json:"current" validate:"required"`
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fetchFailed(p.name, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", strconv.FormatFloat(loc.Lat, 'f', -1, 64)+","+strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())

	var payload weatherAPIPayload
	if err := getJSON(ctx, p.client, p.circuit, u, &payload); err != nil {
		return weather.Reading{}, fetchFailed(p.name, err)
	}
	cur := payload.Current

	return weather.Reading{
		ProviderName: p.name,
		ObservedAt:   time.Unix(*cur.LastUpdatedEpoch, 0).UTC(),
		TemperatureC: *cur.TempC,
		FeelsLikeC:   *cur.FeelsLikeC,
		HumidityPct:  *cur.Humidity,
		PressureHpa:  *cur.PressureMb,
		// kph to m/s.
		WindSpeedMS: *cur.WindKph / 3.6,
		CloudsPct:   *cur.Cloud,
		Main:        mapWeatherAPICondition(cur.Condition.Text),
		Description: common.NormalizeText(cur.Condition.Text),
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	t := common.NormalizeText(text)
	switch {
	case t == "":
		return weather.ConditionUnknown
	case common.ContainsAnyFold(t, "thunder", "storm"):
		return weather.ConditionThunderstorm
	case common.ContainsAnyFold(t, "drizzle"):
		return weather.ConditionDrizzle
	case common.ContainsAnyFold(t, "rain", "shower"):
		return weather.ConditionRain
	case common.ContainsAnyFold(t, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case common.ContainsAnyFold(t, "fog"):
		return weather.ConditionFog
	case common.ContainsAnyFold(t, "mist"):
		return weather.ConditionMist
	case common.ContainsAnyFold(t, "cloud", "overcast"):
		return weather.ConditionClouds
	case common.ContainsAnyFold(t, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
