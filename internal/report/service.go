// Package report answers analytical questions over stored hourly forecasts,
// fetching missing forecasts from the upstream service first.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/weather-insights/internal/lock"
	"github.com/neexbeast/weather-insights/internal/weather"
)

const (
	defaultConcurrency = 4
	weekDays           = 7
)

// Service holds the dependencies shared by all reports.
type Service struct {
	store       Store
	fetcher     Fetcher
	locker      lock.Locker
	log         *slog.Logger
	now         func() time.Time
	concurrency int
}

// NewService constructs a Service using the wall clock.
func NewService(store Store, fetcher Fetcher, locker lock.Locker, log *slog.Logger) *Service {
	return &Service{
		store:       store,
		fetcher:     fetcher,
		locker:      locker,
		log:         log,
		now:         time.Now,
		concurrency: defaultConcurrency,
	}
}

// WithClock replaces the clock (used in tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithConcurrency bounds how many locations are backfilled at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// RefreshAll backfills every known location so it covers the next days.
func (s *Service) RefreshAll(ctx context.Context, days int) error {
	if err := weather.ValidateDays(days); err != nil {
		return err
	}
	_, err := s.ensureAll(ctx, days)
	return err
}

// horizon returns [now, now+days] on the naive wall clock stored rows use.
func (s *Service) horizon(days int) (time.Time, time.Time) {
	from := naive(s.now())
	return from, from.AddDate(0, 0, days)
}

// resolve finds city case-insensitively, fetching it when unknown or stale.
func (s *Service) resolve(ctx context.Context, city string, days int) (*weather.Location, error) {
	unlock, err := s.locker.Lock(ctx, city)
	if err != nil {
		return nil, err
	}
	defer unlock()

	loc, err := s.store.FindLocationByName(ctx, city)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc, err = s.backfill(ctx, city, days)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", city, err)
		}
		return loc, nil
	}

	if err := s.refreshIfStale(ctx, *loc, days); err != nil {
		return nil, err
	}
	return loc, nil
}

// ensureAll refreshes every stored location concurrently.
func (s *Service) ensureAll(ctx context.Context, days int) ([]weather.Location, error) {
	locs, err := s.store.ListLocations(ctx)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, loc := range locs {
		loc := loc
		g.Go(func() error {
			unlock, err := s.locker.Lock(gCtx, loc.Name)
			if err != nil {
				return err
			}
			defer unlock()
			return s.refreshIfStale(gCtx, loc, days)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return locs, nil
}

// refreshIfStale fetches when the newest stored hour falls before the last
// calendar day the upstream returns for days (today + days - 1).
// Callers hold the location's lock.
func (s *Service) refreshIfStale(ctx context.Context, loc weather.Location, days int) error {
	latest, err := s.store.LatestForecastTime(ctx, loc.ID)
	if err != nil {
		return err
	}

	lastDay := dateOf(naive(s.now())).AddDate(0, 0, upstreamDays(days)-1)
	if latest != nil && !dateOf(*latest).Before(lastDay) {
		return nil
	}

	if _, err := s.backfill(ctx, loc.Name, days); err != nil {
		return fmt.Errorf("refreshing %s: %w", loc.Name, err)
	}
	return nil
}

func (s *Service) backfill(ctx context.Context, city string, days int) (*weather.Location, error) {
	s.log.Info("backfilling forecast", "city", city, "days", days)

	snap, err := s.fetcher.Fetch(ctx, weather.KindForecast, weather.Request{
		City:       city,
		Days:       upstreamDays(days),
		AirQuality: true,
	})
	if err != nil {
		return nil, err
	}

	loc, err := s.store.SaveSnapshot(ctx, snap)
	if err != nil {
		return nil, err
	}

	s.log.Info("forecast saved", "city", loc.Name, "location_id", loc.ID, "hours", len(snap.Hours()))
	return loc, nil
}

// upstreamDays caps a horizon at the longest forecast the upstream serves.
// Reports still read the full requested horizon from the store.
func upstreamDays(days int) int {
	return min(days, weather.MaxForecastDays)
}

func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
