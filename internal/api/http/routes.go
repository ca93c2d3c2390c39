package httpapi

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-etl/internal/metrics"
	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
)

var validate = validator.New()

// NewApp builds the Fiber app serving health, metrics and the read API.
func NewApp(service *weather.Service, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-etl",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.Error("request failed", "path", c.Path(), "error", err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-etl",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	RegisterRoutes(app, service)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/locations", func(c *fiber.Ctx) error {
		locs, err := service.Locations(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list locations")
		}
		return c.JSON(fiber.Map{"locations": locs})
	})

	v1.Get("/observations", func(c *fiber.Ctx) error {
		q, obs, err := queryObservations(c, service)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"cities":       q.Cities,
			"from":         q.From,
			"to":           q.To,
			"count":        len(obs),
			"observations": obs,
		})
	})

	v1.Get("/stats", func(c *fiber.Ctx) error {
		_, obs, err := queryObservations(c, service)
		if err != nil {
			return err
		}
		return c.JSON(weather.Summarize(obs))
	})

	v1.Get("/correlation", func(c *fiber.Ctx) error {
		_, obs, err := queryObservations(c, service)
		if err != nil {
			return err
		}
		return c.JSON(weather.CorrelationMatrix(obs))
	})

	v1.Get("/regression", func(c *fiber.Ctx) error {
		_, obs, err := queryObservations(c, service)
		if err != nil {
			return err
		}
		fit, err := weather.FitHumidity(obs)
		if err != nil {
			if errors.Is(err, weather.ErrInsufficientData) || errors.Is(err, weather.ErrDegenerateFit) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fit humidity model")
		}
		return c.JSON(fit)
	})
}

func queryObservations(c *fiber.Ctx, service *weather.Service) (observationQuery, []weather.Observation, error) {
	var q observationQuery
	if err := q.bind(c); err != nil {
		return q, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return q, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	obs, err := service.Observations(c.UserContext(), q.filter())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return q, nil, fiber.NewError(fiber.StatusNotFound, "no observations for requested filter")
		}
		return q, nil, fiber.NewError(fiber.StatusInternalServerError, "failed to query observations")
	}
	return q, obs, nil
}

// observationQuery holds the shared filter parameters of the read endpoints.
type observationQuery struct {
	Cities []string  `json:"cities" validate:"max=50,dive,max=100"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to" validate:"omitempty,gtefield=From"`
}

func (q *observationQuery) bind(c *fiber.Ctx) error {
	for _, city := range strings.Split(c.Query("city"), ",") {
		if city = strings.TrimSpace(city); city != "" {
			q.Cities = append(q.Cities, city)
		}
	}

	if s := c.Query("from"); s != "" {
		from, _, err := parseTime(s)
		if err != nil {
			return err
		}
		q.From = from
	}
	if s := c.Query("to"); s != "" {
		to, dateOnly, err := parseTime(s)
		if err != nil {
			return err
		}
		if dateOnly {
			// a bare date includes the whole day
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		q.To = to
	}
	return nil
}

func (q observationQuery) filter() weather.ObservationFilter {
	return weather.ObservationFilter{Cities: q.Cities, From: q.From, To: q.To}
}

// parseTime accepts RFC3339, Unix seconds or a YYYY-MM-DD date (UTC midnight).
func parseTime(s string) (time.Time, bool, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), false, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), false, nil
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, true, nil
	}
	return time.Time{}, false, errors.New("invalid time format; use RFC3339, unix seconds or YYYY-MM-DD")
}
