package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-etl/internal/weather"
)

var london = weather.Location{ID: 2, City: "London", Country: "GB", Lat: 51.5072, Lon: -0.1276}

const owmBody = `{
  "dt": 1717243200,
  "main": {"temp": 18.4, "feels_like": 17.9, "humidity": 72, "pressure": 1012},
  "wind": {"speed": 4.1},
  "clouds": {"all": 40},
  "weather": [{"main": "Clouds", "description": "scattered clouds"}]
}`

func serve(t *testing.T, status int, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProvider(t *testing.T, name, baseURL string) weather.Provider {
	t.Helper()
	p, err := New(Config{Name: name, APIKey: "secret", BaseURL: baseURL, Client: &http.Client{Timeout: 2 * time.Second}})
	require.NoError(t, err)
	return p
}

func TestOpenWeatherFetch(t *testing.T) {
	srv := serve(t, http.StatusOK, owmBody, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "51.5072", q.Get("lat"))
		assert.Equal(t, "-0.1276", q.Get("lon"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "secret", q.Get("appid"))
	})

	r, err := newProvider(t, "openweather", srv.URL).Fetch(context.Background(), london)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), r.ObservedAt)
	assert.Equal(t, time.UTC, r.ObservedAt.Location())
	assert.Equal(t, 18.4, r.TemperatureC)
	assert.Equal(t, 17.9, r.FeelsLikeC)
	assert.Equal(t, 72.0, r.HumidityPct)
	assert.Equal(t, 1012.0, r.PressureHpa)
	assert.Equal(t, 4.1, r.WindSpeedMS)
	assert.Equal(t, 40.0, r.CloudsPct)
	assert.Equal(t, weather.ConditionClouds, r.Main)
	assert.Equal(t, "scattered clouds", r.Description)
}

func TestOpenWeatherZeroValuesAreAccepted(t *testing.T) {
	body := `{"dt": 1717243200, "main": {"temp": 0, "feels_like": -3.5, "humidity": 0, "pressure": 1000},
	  "wind": {"speed": 0}, "clouds": {"all": 0}, "weather": [{"main": "Clear", "description": "clear sky"}]}`
	srv := serve(t, http.StatusOK, body, nil)

	r, err := newProvider(t, "openweather", srv.URL).Fetch(context.Background(), london)
	require.NoError(t, err)
	assert.Zero(t, r.TemperatureC)
	assert.Zero(t, r.WindSpeedMS)
}

func TestOpenWeatherFetchFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`},
		{"unauthorized", http.StatusUnauthorized, `{"cod":401}`},
		{"malformed json", http.StatusOK, `{"dt": `},
		{"missing main block", http.StatusOK, `{"dt": 1, "wind": {"speed": 1}, "clouds": {"all": 1}, "weather": [{"main": "Rain"}]}`},
		{"missing humidity", http.StatusOK, `{"dt": 1, "main": {"temp": 1, "feels_like": 1, "pressure": 1}, "wind": {"speed": 1}, "clouds": {"all": 1}, "weather": [{"main": "Rain"}]}`},
		{"empty weather list", http.StatusOK, `{"dt": 1, "main": {"temp": 1, "feels_like": 1, "humidity": 1, "pressure": 1}, "wind": {"speed": 1}, "clouds": {"all": 1}, "weather": []}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serve(t, tc.status, tc.body, nil)
			_, err := newProvider(t, "openweather", srv.URL).Fetch(context.Background(), london)
			require.Error(t, err)
			assert.ErrorIs(t, err, weather.ErrFetchFailed)
		})
	}
}

func TestOpenWeatherUnreachable(t *testing.T) {
	srv := serve(t, http.StatusOK, owmBody, nil)
	url := srv.URL
	srv.Close()

	_, err := newProvider(t, "openweather", url).Fetch(context.Background(), london)
	assert.ErrorIs(t, err, weather.ErrFetchFailed)
}

func TestOpenWeatherRequiresAPIKey(t *testing.T) {
	p, err := New(Config{Name: "openweather"})
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), london)
	assert.ErrorIs(t, err, weather.ErrFetchFailed)
}

func TestWeatherAPIFetch(t *testing.T) {
	body := `{"current": {"last_updated_epoch": 1717243200, "temp_c": 21.0, "feelslike_c": 20.5,
	  "humidity": 55, "pressure_mb": 1015, "wind_kph": 18, "cloud": 25,
	  "condition": {"text": "Patchy light drizzle"}}}`
	srv := serve(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "51.5072,-0.1276", r.URL.Query().Get("q"))
	})

	r, err := newProvider(t, "weatherapi", srv.URL).Fetch(context.Background(), london)
	require.NoError(t, err)
	assert.Equal(t, "weatherapi", r.ProviderName)
	assert.Equal(t, time.Unix(1717243200, 0).UTC(), r.ObservedAt)
	assert.InDelta(t, 5.0, r.WindSpeedMS, 1e-9)
	assert.Equal(t, weather.ConditionDrizzle, r.Main)
	assert.Equal(t, "patchy light drizzle", r.Description)
}

func TestWeatherAPIIncompletePayload(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"current": {"temp_c": 21.0}}`, nil)
	_, err := newProvider(t, "weatherapi", srv.URL).Fetch(context.Background(), london)
	assert.ErrorIs(t, err, weather.ErrFetchFailed)
}

func TestOpenMeteoFetch(t *testing.T) {
	body := `{"current": {"time": 1717243200, "temperature_2m": 15.2, "apparent_temperature": 14.0,
	  "relative_humidity_2m": 80, "surface_pressure": 1009.4, "wind_speed_10m": 3.3,
	  "cloud_cover": 90, "weather_code": 61}}`
	srv := serve(t, http.StatusOK, body, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ms", q.Get("wind_speed_unit"))
		assert.Equal(t, "unixtime", q.Get("timeformat"))
		assert.Empty(t, q.Get("appid"))
	})

	r, err := newProvider(t, "openmeteo", srv.URL).Fetch(context.Background(), london)
	require.NoError(t, err)
	assert.Equal(t, weather.ConditionRain, r.Main)
	assert.Equal(t, "rain", r.Description)
	assert.Equal(t, 1009.4, r.PressureHpa)
}

func TestMapWeatherAPICondition(t *testing.T) {
	cases := map[string]weather.Condition{
		"Sunny":                       weather.ConditionClear,
		"Overcast":                    weather.ConditionClouds,
		"Moderate rain":               weather.ConditionRain,
		"Thundery outbreaks possible": weather.ConditionThunderstorm,
		"Freezing fog":                weather.ConditionFog,
		"Mist":                        weather.ConditionMist,
		"Blizzard":                    weather.ConditionSnow,
		"":                            weather.ConditionUnknown,
	}
	for text, want := range cases {
		assert.Equal(t, want, mapWeatherAPICondition(text), text)
	}
}

func TestMapOpenMeteoCondition(t *testing.T) {
	main, _ := mapOpenMeteoCondition(0)
	assert.Equal(t, weather.ConditionClear, main)
	main, _ = mapOpenMeteoCondition(95)
	assert.Equal(t, weather.ConditionThunderstorm, main)
	main, desc := mapOpenMeteoCondition(42)
	assert.Equal(t, weather.ConditionUnknown, main)
	assert.Equal(t, "unknown", desc)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Config{Name: "darksky"})
	assert.Error(t, err)
}

func TestProviderDescriptionsAreNormalized(t *testing.T) {
	body := `{"dt": 1717243200, "main": {"temp": 1, "feels_like": 1, "humidity": 1, "pressure": 1},
	  "wind": {"speed": 1}, "clouds": {"all": 1}, "weather": [{"main": "Clouds", "description": " Scattered   Clouds"}]}`
	srv := serve(t, http.StatusOK, body, nil)

	r, err := newProvider(t, "openweather", srv.URL).Fetch(context.Background(), london)
	require.NoError(t, err)
	assert.Equal(t, "scattered clouds", r.Description)

	assert.Equal(t, weather.ConditionRain, mapWeatherAPICondition("MODERATE   RAIN"))
}
