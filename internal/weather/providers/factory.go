package providers

import (
	"fmt"
	"net/http"

	"github.com/i474232898/weather-etl/internal/weather"
)

// Config selects and configures a provider.
type Config struct {
	Name   string // openweather, weatherapi or openmeteo
	APIKey string
	// BaseURL overrides the provider endpoint when set.
	BaseURL string
	Client  *http.Client
}

// New builds the provider named in cfg.
func New(cfg Config) (weather.Provider, error) {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	switch cfg.Name {
	case "openweather", "":
		p := NewOpenWeatherProvider(client, cfg.APIKey)
		if cfg.BaseURL != "" {
			p.baseURL = cfg.BaseURL
		}
		return p, nil
	case "weatherapi":
		p := NewWeatherAPIProvider(client, cfg.APIKey)
		if cfg.BaseURL != "" {
			p.baseURL = cfg.BaseURL
		}
		return p, nil
	case "openmeteo":
		p := NewOpenMeteoProvider(client)
		if cfg.BaseURL != "" {
			p.baseURL = cfg.BaseURL
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", cfg.Name)
	}
}
