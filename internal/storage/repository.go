package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/weather-insights/internal/weather"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository is the persistence gateway for locations and readings.
// Every write is a single INSERT .. ON CONFLICT statement keyed on the
// natural key, so concurrent writers cannot create duplicates.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const upsertLocationSQL = `
	INSERT INTO location (name, region, country, lat, lon, tz_id, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (lat, lon) DO UPDATE
	SET name       = EXCLUDED.name,
	    region     = EXCLUDED.region,
	    country    = EXCLUDED.country,
	    tz_id      = EXCLUDED.tz_id,
	    updated_at = EXCLUDED.updated_at
	RETURNING id
`

// UpsertLocation inserts loc or overwrites the row with the same coordinates,
// returning loc with its stored ID.
func (r *Repository) UpsertLocation(ctx context.Context, loc weather.Location) (*weather.Location, error) {
	if err := r.q.QueryRow(ctx, upsertLocationSQL,
		loc.Name, loc.Region, loc.Country, loc.Lat, loc.Lon, loc.TzID,
	).Scan(&loc.ID); err != nil {
		return nil, fmt.Errorf("upserting location %s: %w", loc.Name, err)
	}
	return &loc, nil
}

const upsertCurrentSQL = `
	INSERT INTO current_weather (
		location_id, date_time, condition, visibility_km, humidity_percent, air_quality,
		temp_c, realfeel_c, wind_speed_mph, wind_pressure_in, cloud_cover_percent, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	ON CONFLICT (location_id, date_time) DO UPDATE
	SET condition           = EXCLUDED.condition,
	    visibility_km       = EXCLUDED.visibility_km,
	    humidity_percent    = EXCLUDED.humidity_percent,
	    air_quality         = EXCLUDED.air_quality,
	    temp_c              = EXCLUDED.temp_c,
	    realfeel_c          = EXCLUDED.realfeel_c,
	    wind_speed_mph      = EXCLUDED.wind_speed_mph,
	    wind_pressure_in    = EXCLUDED.wind_pressure_in,
	    cloud_cover_percent = EXCLUDED.cloud_cover_percent,
	    updated_at          = EXCLUDED.updated_at
`

// UpsertCurrent writes one current observation for the location.
func (r *Repository) UpsertCurrent(ctx context.Context, locationID int64, c weather.CurrentReading) error {
	ts, err := readingTime(c.Time)
	if err != nil {
		return fmt.Errorf("upserting current weather for location %d: %w", locationID, err)
	}

	if _, err := r.q.Exec(ctx, upsertCurrentSQL,
		locationID, ts, c.Condition, c.VisibilityKm, c.HumidityPct, airQuality(c.AirQuality.Label),
		c.TempC, c.FeelsLikeC, c.WindMph, c.PressureIn, c.CloudPct,
	); err != nil {
		return fmt.Errorf("upserting current weather for location %d: %w", locationID, err)
	}
	return nil
}

const upsertForecastSQL = `
	INSERT INTO forecast_weather (
		location_id, date_time, condition, visibility_km, humidity_percent, air_quality,
		temp_c, realfeel_c, wind_speed_mph, wind_pressure_in, cloud_cover_percent,
		wind_gust_mph, dew_point_c, probability_of_rain_percent, probability_of_snow_percent, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	ON CONFLICT (location_id, date_time) DO UPDATE
	SET condition                   = EXCLUDED.condition,
	    visibility_km               = EXCLUDED.visibility_km,
	    humidity_percent            = EXCLUDED.humidity_percent,
	    air_quality                 = EXCLUDED.air_quality,
	    temp_c                      = EXCLUDED.temp_c,
	    realfeel_c                  = EXCLUDED.realfeel_c,
	    wind_speed_mph              = EXCLUDED.wind_speed_mph,
	    wind_pressure_in            = EXCLUDED.wind_pressure_in,
	    cloud_cover_percent         = EXCLUDED.cloud_cover_percent,
	    wind_gust_mph               = EXCLUDED.wind_gust_mph,
	    dew_point_c                 = EXCLUDED.dew_point_c,
	    probability_of_rain_percent = EXCLUDED.probability_of_rain_percent,
	    probability_of_snow_percent = EXCLUDED.probability_of_snow_percent,
	    updated_at                  = EXCLUDED.updated_at
`

// UpsertForecastHours writes all hours for the location in one batch.
func (r *Repository) UpsertForecastHours(ctx context.Context, locationID int64, hours []weather.ForecastHour) error {
	if len(hours) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, h := range hours {
		ts, err := readingTime(h.Time)
		if err != nil {
			return fmt.Errorf("upserting forecast hours for location %d: %w", locationID, err)
		}
		batch.Queue(upsertForecastSQL,
			locationID, ts, h.Condition, h.VisibilityKm, h.HumidityPct, airQuality(h.AirQuality.Label),
			h.TempC, h.FeelsLikeC, h.WindMph, h.PressureIn, h.CloudPct,
			h.GustMph, h.DewPointC, h.ChanceOfRain, h.ChanceOfSnow,
		)
	}

	res := r.q.SendBatch(ctx, batch)
	defer res.Close()

	for range hours {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("upserting forecast hours for location %d: %w", locationID, err)
		}
	}
	return nil
}

// SaveSnapshot persists the snapshot's location and readings and returns the
// stored location. Day aggregates are not stored; they are derived from hours.
func (r *Repository) SaveSnapshot(ctx context.Context, snap *weather.Snapshot) (*weather.Location, error) {
	if snap == nil || snap.Location == nil {
		return nil, fmt.Errorf("saving snapshot: %w: response carried no location", weather.ErrLocationNotFound)
	}

	loc, err := r.UpsertLocation(ctx, *snap.Location)
	if err != nil {
		return nil, err
	}

	switch snap.Kind {
	case weather.KindCurrent:
		if snap.Current != nil {
			if err := r.UpsertCurrent(ctx, loc.ID, *snap.Current); err != nil {
				return nil, err
			}
		}
	case weather.KindForecast:
		if err := r.UpsertForecastHours(ctx, loc.ID, snap.Hours()); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("saving snapshot: unknown type %q", snap.Kind)
	}

	return loc, nil
}

const selectLocationSQL = `SELECT id, name, region, country, lat, lon, tz_id FROM location`

// FindLocationByName matches name case-insensitively.
// Returns nil, nil when no location matches.
func (r *Repository) FindLocationByName(ctx context.Context, name string) (*weather.Location, error) {
	const q = selectLocationSQL + ` WHERE lower(name) = lower($1) ORDER BY id LIMIT 1`

	loc, err := scanLocation(r.q.QueryRow(ctx, q, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying location %s: %w", name, err)
	}
	return loc, nil
}

// ListLocations returns every stored location ordered by ID.
func (r *Repository) ListLocations(ctx context.Context) ([]weather.Location, error) {
	rows, err := r.q.Query(ctx, selectLocationSQL+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var out []weather.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location row: %w", err)
		}
		out = append(out, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating location rows: %w", err)
	}
	return out, nil
}

// LatestForecastTime returns the newest stored forecast hour for the
// location, or nil when it has none.
func (r *Repository) LatestForecastTime(ctx context.Context, locationID int64) (*time.Time, error) {
	const q = `SELECT max(date_time) FROM forecast_weather WHERE location_id = $1`

	var latest *time.Time
	if err := r.q.QueryRow(ctx, q, locationID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("querying latest forecast for location %d: %w", locationID, err)
	}
	return latest, nil
}

// ForecastHours returns the stored hours of the given locations within
// [from, to], ordered by location and time.
func (r *Repository) ForecastHours(ctx context.Context, locationIDs []int64, from, to time.Time) ([]weather.HourRow, error) {
	const q = `
		SELECT location_id, date_time, temp_c, humidity_percent
		FROM forecast_weather
		WHERE location_id = ANY($1)
		AND date_time >= $2
		AND date_time <= $3
		ORDER BY location_id, date_time
	`

	rows, err := r.q.Query(ctx, q, locationIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying forecast hours: %w", err)
	}
	defer rows.Close()

	var out []weather.HourRow
	for rows.Next() {
		var h weather.HourRow
		if err := rows.Scan(&h.LocationID, &h.Time, &h.TempC, &h.HumidityPct); err != nil {
			return nil, fmt.Errorf("scanning forecast hour row: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating forecast hour rows: %w", err)
	}
	return out, nil
}

func scanLocation(row pgx.Row) (*weather.Location, error) {
	var loc weather.Location
	var region, tzID *string
	if err := row.Scan(&loc.ID, &loc.Name, &region, &loc.Country, &loc.Lat, &loc.Lon, &tzID); err != nil {
		return nil, err
	}
	if region != nil {
		loc.Region = *region
	}
	if tzID != nil {
		loc.TzID = *tzID
	}
	return &loc, nil
}

func readingTime(s *string) (time.Time, error) {
	if s == nil {
		return time.Time{}, fmt.Errorf("%w: reading has no timestamp", weather.ErrFormat)
	}
	return weather.ParseTimestamp(*s)
}

func airQuality(a *weather.AirQuality) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}
