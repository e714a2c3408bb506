package report

import (
	"context"
	"time"

	"github.com/neexbeast/weather-insights/internal/weather"
)

// Store defines the persistence operations the reports need.
type Store interface {
	FindLocationByName(ctx context.Context, name string) (*weather.Location, error)
	ListLocations(ctx context.Context) ([]weather.Location, error)
	LatestForecastTime(ctx context.Context, locationID int64) (*time.Time, error)
	ForecastHours(ctx context.Context, locationIDs []int64, from, to time.Time) ([]weather.HourRow, error)
	SaveSnapshot(ctx context.Context, snap *weather.Snapshot) (*weather.Location, error)
}

// Fetcher defines the upstream fetch used for backfilling.
type Fetcher interface {
	Fetch(ctx context.Context, kind weather.Kind, req weather.Request) (*weather.Snapshot, error)
}
