package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/i474232898/weather-etl/internal/weather"
)

// dimLocation maps the dim_location table.
type dimLocation struct {
	ID       int64   `gorm:"column:location_id;primaryKey;autoIncrement"`
	CityName string  `gorm:"column:city_name;size:100;not null;uniqueIndex:uq_dim_location_natural_key"`
	Country  string  `gorm:"column:country;size:50;not null;uniqueIndex:uq_dim_location_natural_key"`
	Lat      float64 `gorm:"column:lat;not null"`
	Lon      float64 `gorm:"column:lon;not null"`
}

func (dimLocation) TableName() string { return "dim_location" }

// factWeather maps the fact_weather table.
type factWeather struct {
	ID          int64        `gorm:"column:id;primaryKey;autoIncrement"`
	LocationID  int64        `gorm:"column:location_id;not null;index"`
	Location    *dimLocation `gorm:"foreignKey:LocationID;references:ID"`
	ObsTS       time.Time    `gorm:"column:obs_ts;not null;index"`
	TempC       float64      `gorm:"column:temp_c"`
	FeelsLikeC  float64      `gorm:"column:feels_like_c"`
	HumidityPct float64      `gorm:"column:humidity_pct"`
	PressureHpa float64      `gorm:"column:pressure_hpa"`
	WindSpeedMS float64      `gorm:"column:wind_speed_ms"`
	WeatherMain string       `gorm:"column:weather_main;size:50"`
	WeatherDesc string       `gorm:"column:weather_desc;size:100"`
	CloudsPct   float64      `gorm:"column:clouds_pct"`
}

func (factWeather) TableName() string { return "fact_weather" }

func fromLocation(l weather.Location) dimLocation {
	return dimLocation{ID: l.ID, CityName: l.City, Country: l.Country, Lat: l.Lat, Lon: l.Lon}
}

func (d dimLocation) toLocation() weather.Location {
	return weather.Location{ID: d.ID, City: d.CityName, Country: d.Country, Lat: d.Lat, Lon: d.Lon}
}

func fromObservation(o weather.Observation) factWeather {
	return factWeather{
		LocationID:  o.LocationID,
		ObsTS:       o.ObservedAt.UTC(),
		TempC:       o.TemperatureC,
		FeelsLikeC:  o.FeelsLikeC,
		HumidityPct: o.HumidityPct,
		PressureHpa: o.PressureHpa,
		WindSpeedMS: o.WindSpeedMS,
		WeatherMain: string(o.Main),
		WeatherDesc: o.Description,
		CloudsPct:   o.CloudsPct,
	}
}

func (f factWeather) toObservation() weather.Observation {
	o := weather.Observation{
		ID:           f.ID,
		LocationID:   f.LocationID,
		ObservedAt:   f.ObsTS.UTC(),
		TemperatureC: f.TempC,
		FeelsLikeC:   f.FeelsLikeC,
		HumidityPct:  f.HumidityPct,
		PressureHpa:  f.PressureHpa,
		WindSpeedMS:  f.WindSpeedMS,
		Main:         weather.Condition(f.WeatherMain),
		Description:  f.WeatherDesc,
		CloudsPct:    f.CloudsPct,
	}
	if f.Location != nil {
		o.City = f.Location.CityName
		o.Country = f.Location.Country
	}
	return o
}

// SQLStore is the gorm-backed weather.Store.
type SQLStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ weather.Store = (*SQLStore)(nil)

// NewSQLStore wraps an already opened gorm connection.
func NewSQLStore(db *gorm.DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, logger: logger}
}

// Dialector picks the gorm dialect for a DB_URL. sqlite:///path and bare paths
// select SQLite; postgres:// and postgresql:// select Postgres.
func Dialector(dbURL string) (gorm.Dialector, string, error) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return postgres.Open(dbURL), "postgres", nil
	case strings.HasPrefix(dbURL, "sqlite:///"):
		return sqlite.Open(sqliteDSN(strings.TrimPrefix(dbURL, "sqlite:///"))), "sqlite", nil
	case strings.HasPrefix(dbURL, "sqlite://"):
		return sqlite.Open(sqliteDSN(strings.TrimPrefix(dbURL, "sqlite://"))), "sqlite", nil
	case dbURL == "":
		return nil, "", errors.New("database url is empty")
	case strings.Contains(dbURL, "://"):
		return nil, "", fmt.Errorf("unsupported database url scheme: %s", dbURL[:strings.Index(dbURL, "://")])
	default:
		return sqlite.Open(sqliteDSN(dbURL)), "sqlite", nil
	}
}

// sqliteDSN turns on foreign key enforcement for every connection the pool opens.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys=") || strings.Contains(path, "_fk=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Open connects to dbURL and verifies the connection.
func Open(ctx context.Context, dbURL string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialector, kind, err := Dialector(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// One connection per process: the ETL is the only writer.
	sqlDB.SetMaxOpenConns(1)
	if kind == "postgres" {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established", "dialect", kind)
	return NewSQLStore(db, logger), nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecreateTables drops fact_weather then dim_location and recreates both.
func (s *SQLStore) RecreateTables(ctx context.Context) error {
	m := s.db.WithContext(ctx).Migrator()
	if err := m.DropTable(&factWeather{}); err != nil {
		return fmt.Errorf("drop fact_weather: %w", err)
	}
	if err := m.DropTable(&dimLocation{}); err != nil {
		return fmt.Errorf("drop dim_location: %w", err)
	}
	if err := m.CreateTable(&dimLocation{}); err != nil {
		return fmt.Errorf("create dim_location: %w", err)
	}
	if err := m.CreateTable(&factWeather{}); err != nil {
		return fmt.Errorf("create fact_weather: %w", err)
	}
	return nil
}

// SeedLocations inserts locs with ON CONFLICT (city_name, country) DO NOTHING.
func (s *SQLStore) SeedLocations(ctx context.Context, locs []weather.Location) (int, error) {
	inserted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range locs {
			row := fromLocation(l)
			row.ID = 0
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "city_name"}, {Name: "country"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("insert %s: %w", l.Key(), res.Error)
			}
			inserted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListLocations returns every location ordered by location_id.
func (s *SQLStore) ListLocations(ctx context.Context) ([]weather.Location, error) {
	var rows []dimLocation
	if err := s.db.WithContext(ctx).Order("location_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select dim_location: %w", err)
	}
	out := make([]weather.Location, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toLocation())
	}
	return out, nil
}

// InsertObservations writes obs in a single transaction.
func (s *SQLStore) InsertObservations(ctx context.Context, obs []weather.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	rows := make([]factWeather, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, fromObservation(o))
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("insert fact_weather: %w", err)
	}
	s.logger.Debug("inserted fact_weather rows", "rows", len(rows), "location_id", rows[0].LocationID)
	return nil
}

// QueryObservations joins fact_weather to dim_location and applies the filter.
func (s *SQLStore) QueryObservations(ctx context.Context, filter weather.ObservationFilter) ([]weather.Observation, error) {
	q := s.db.WithContext(ctx).Joins("Location")

	if len(filter.Cities) > 0 {
		values := make([]any, 0, len(filter.Cities))
		for _, c := range filter.Cities {
			values = append(values, c)
		}
		q = q.Where(clause.IN{Column: clause.Column{Table: "Location", Name: "city_name"}, Values: values})
	}
	if !filter.From.IsZero() {
		q = q.Where(clause.Gte{Column: clause.Column{Table: "fact_weather", Name: "obs_ts"}, Value: filter.From.UTC()})
	}
	if !filter.To.IsZero() {
		q = q.Where(clause.Lte{Column: clause.Column{Table: "fact_weather", Name: "obs_ts"}, Value: filter.To.UTC()})
	}

	var rows []factWeather
	err := q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Table: "fact_weather", Name: "obs_ts"}},
		{Column: clause.Column{Table: "fact_weather", Name: "id"}},
	}}).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select fact_weather: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	out := make([]weather.Observation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toObservation())
	}
	return out, nil
}
