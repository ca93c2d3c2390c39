package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-etl/internal/weather"
)

var (
	errUnexpected   = errors.New("unexpected status code")
	errNoHTTPClient = errors.New("http client not configured")
	errNoAPIKey     = errors.New("api key is not configured")
)

var validate = validator.New()

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
}

// fetchFailed folds any cause into weather.ErrFetchFailed.
func fetchFailed(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", weather.ErrFetchFailed, provider, err)
}

// getJSON performs one GET through the circuit breaker, then decodes and
// validates the body into out. There are no retries.
func getJSON(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, url string, out any) error {
	if client == nil {
		return errNoHTTPClient
	}

	_, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if err := validate.Struct(out); err != nil {
			return nil, fmt.Errorf("incomplete response: %w", err)
		}
		return nil, nil
	})
	return err
}
