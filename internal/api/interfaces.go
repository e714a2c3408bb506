package api

import (
	"context"

	"github.com/neexbeast/weather-insights/internal/report"
	"github.com/neexbeast/weather-insights/internal/weather"
)

// WeatherFetcher defines the upstream fetch needed by handlers.
type WeatherFetcher interface {
	Fetch(ctx context.Context, kind weather.Kind, req weather.Request) (*weather.Snapshot, error)
}

// SnapshotStore defines the storage operation needed by the refresh handler.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *weather.Snapshot) (*weather.Location, error)
}

// Reporter defines the analytical reports exposed over HTTP.
type Reporter interface {
	HottestHour(ctx context.Context, city string, days int) (*report.HottestHour, error)
	SecondMostHumidCity(ctx context.Context) (*report.HumidCity, error)
	LowestAverageSwing(ctx context.Context, days int) (*report.SwingCity, error)
	WidestSwingDay(ctx context.Context, city string) (*report.SwingDay, error)
}
