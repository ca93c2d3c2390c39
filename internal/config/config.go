package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a recognized option holds an unusable value.
var ErrInvalidConfig = errors.New("invalid configuration")

// minHTTPTimeout rejects values that can never complete a request.
const minHTTPTimeout = 100 * time.Millisecond

// Provider names accepted by WEATHER_PROVIDER.
const (
	ProviderOpenWeather = "openweather"
	ProviderWeatherAPI  = "weatherapi"
	ProviderOpenMeteo   = "openmeteo"
)

// SMTPConfig describes the outbound mail relay used for failure alerts.
type SMTPConfig struct {
	Host      string
	Port      int
	Sender    string
	Password  string
	Recipient string
}

type AppConfig struct {
	Provider          string
	OpenWeatherAPIKey string
	WeatherAPIKey     string

	// DatabaseURL is either sqlite:///path or a postgres:// URL.
	DatabaseURL string

	SMTP SMTPConfig

	ScheduleIntervalMinutes int
	BackfillHours           int

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration
	// FetchThrottle is the minimum gap between per-city API calls (0 = none).
	FetchThrottle time.Duration

	LogLevel string
	Port     string
}

// Interval returns the scheduling interval as a duration.
func (c *AppConfig) Interval() time.Duration {
	return time.Duration(c.ScheduleIntervalMinutes) * time.Minute
}

// SMTPConfigured reports whether every mail relay option is present.
func (c *AppConfig) SMTPConfigured() bool {
	s := c.SMTP
	return s.Host != "" && s.Sender != "" && s.Password != "" && s.Recipient != ""
}

// APIKey returns the credential of the selected provider.
func (c *AppConfig) APIKey() string {
	switch c.Provider {
	case ProviderWeatherAPI:
		return c.WeatherAPIKey
	case ProviderOpenWeather:
		return c.OpenWeatherAPIKey
	default:
		return ""
	}
}

// Load reads configuration from .env, the environment and an optional config.yaml.
// An empty path searches the working directory and /etc/weather-etl/ for config.yaml.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/weather-etl/")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &AppConfig{
		Provider:          strings.ToLower(strings.TrimSpace(v.GetString("WEATHER_PROVIDER"))),
		OpenWeatherAPIKey: v.GetString("OWM_API_KEY"),
		WeatherAPIKey:     v.GetString("WEATHERAPI_API_KEY"),
		DatabaseURL:       v.GetString("DB_URL"),
		SMTP: SMTPConfig{
			Host:      v.GetString("SMTP_SERVER"),
			Port:      v.GetInt("SMTP_PORT"),
			Sender:    v.GetString("EMAIL_SENDER"),
			Password:  v.GetString("EMAIL_PASSWORD"),
			Recipient: v.GetString("EMAIL_RECIPIENT"),
		},
		ScheduleIntervalMinutes: v.GetInt("SCHEDULE_INTERVAL_MINUTES"),
		BackfillHours:           v.GetInt("BACKFILL_HOURS"),
		HTTPTimeout:             getDuration(v, "HTTP_TIMEOUT"),
		FetchThrottle:           getDuration(v, "FETCH_THROTTLE"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		Port:                    v.GetString("PORT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getDuration reads a Go duration ("10s", "500ms"); a bare number means seconds.
func getDuration(v *viper.Viper, key string) time.Duration {
	if n, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64); err == nil {
		return time.Duration(n * float64(time.Second))
	}
	return v.GetDuration(key)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("WEATHER_PROVIDER", ProviderOpenWeather)
	v.SetDefault("DB_URL", "sqlite:///weather.db")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SCHEDULE_INTERVAL_MINUTES", 60)
	v.SetDefault("BACKFILL_HOURS", 25)
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("FETCH_THROTTLE", "1s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
}

// Validate checks option values. Provider credentials are checked separately
// by ValidateCredentials, since read-only commands never call a provider.
func (c *AppConfig) Validate() error {
	switch c.Provider {
	case ProviderOpenWeather, ProviderWeatherAPI, ProviderOpenMeteo:
	default:
		return fmt.Errorf("%w: unknown WEATHER_PROVIDER %q", ErrInvalidConfig, c.Provider)
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DB_URL must not be empty", ErrInvalidConfig)
	}
	if c.ScheduleIntervalMinutes <= 0 {
		return fmt.Errorf("%w: SCHEDULE_INTERVAL_MINUTES must be positive", ErrInvalidConfig)
	}
	if c.BackfillHours < 0 {
		return fmt.Errorf("%w: BACKFILL_HOURS must not be negative", ErrInvalidConfig)
	}
	if c.HTTPTimeout < minHTTPTimeout {
		return fmt.Errorf("%w: HTTP_TIMEOUT must be at least %s, got %s", ErrInvalidConfig, minHTTPTimeout, c.HTTPTimeout)
	}
	if c.FetchThrottle < 0 {
		return fmt.Errorf("%w: FETCH_THROTTLE must not be negative", ErrInvalidConfig)
	}
	if c.SMTPConfigured() && c.SMTP.Port <= 0 {
		return fmt.Errorf("%w: SMTP_PORT must be positive", ErrInvalidConfig)
	}
	return nil
}

// ValidateCredentials checks that the selected provider has its API key.
func (c *AppConfig) ValidateCredentials() error {
	switch c.Provider {
	case ProviderOpenWeather:
		if c.OpenWeatherAPIKey == "" {
			return fmt.Errorf("%w: OWM_API_KEY not found in environment", ErrInvalidConfig)
		}
	case ProviderWeatherAPI:
		if c.WeatherAPIKey == "" {
			return fmt.Errorf("%w: WEATHERAPI_API_KEY not found in environment", ErrInvalidConfig)
		}
	}
	return nil
}
