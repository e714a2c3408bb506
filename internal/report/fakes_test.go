package report_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/neexbeast/weather-insights/internal/lock"
	"github.com/neexbeast/weather-insights/internal/report"
	"github.com/neexbeast/weather-insights/internal/weather"
)

// now is the fixed clock every report test runs at.
var now = time.Date(2023, 3, 25, 0, 0, 0, 0, time.UTC)

// ---- in-memory Store ----

// memStore keeps upsert semantics: locations keyed by (lat, lon),
// hours keyed by (location, time).
type memStore struct {
	mu     sync.Mutex
	locs   []weather.Location
	hours  map[int64]map[time.Time]weather.HourRow
	saves  int
	listFn func() ([]weather.Location, error)
}

func newMemStore() *memStore {
	return &memStore{hours: make(map[int64]map[time.Time]weather.HourRow)}
}

func (m *memStore) FindLocationByName(_ context.Context, name string) (*weather.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.locs {
		if strings.EqualFold(l.Name, name) {
			loc := l
			return &loc, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListLocations(_ context.Context) ([]weather.Location, error) {
	if m.listFn != nil {
		return m.listFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]weather.Location(nil), m.locs...), nil
}

func (m *memStore) LatestForecastTime(_ context.Context, locationID int64) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *time.Time
	for ts := range m.hours[locationID] {
		if latest == nil || ts.After(*latest) {
			t := ts
			latest = &t
		}
	}
	return latest, nil
}

func (m *memStore) ForecastHours(_ context.Context, ids []int64, from, to time.Time) ([]weather.HourRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []weather.HourRow
	for _, id := range ids {
		for ts, row := range m.hours[id] {
			if !ts.Before(from) && !ts.After(to) {
				out = append(out, row)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].Time.Before(out[j].Time)
	})
	return out, nil
}

func (m *memStore) SaveSnapshot(_ context.Context, snap *weather.Snapshot) (*weather.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++

	loc := *snap.Location
	found := false
	for i, l := range m.locs {
		if l.Lat == loc.Lat && l.Lon == loc.Lon {
			loc.ID = l.ID
			m.locs[i] = loc
			found = true
			break
		}
	}
	if !found {
		loc.ID = int64(len(m.locs) + 1)
		m.locs = append(m.locs, loc)
	}

	if m.hours[loc.ID] == nil {
		m.hours[loc.ID] = make(map[time.Time]weather.HourRow)
	}
	for _, h := range snap.Hours() {
		ts, err := weather.ParseTimestamp(*h.Time)
		if err != nil {
			return nil, err
		}
		m.hours[loc.ID][ts] = weather.HourRow{LocationID: loc.ID, Time: ts, TempC: h.TempC, HumidityPct: h.HumidityPct}
	}
	return &loc, nil
}

// ---- fake Fetcher ----

type fakeFetcher struct {
	mu        sync.Mutex
	snapshots map[string]*weather.Snapshot
	requests  []weather.Request
	err       error
}

func newFakeFetcher(snaps ...*weather.Snapshot) *fakeFetcher {
	f := &fakeFetcher{snapshots: make(map[string]*weather.Snapshot)}
	for _, s := range snaps {
		f.snapshots[strings.ToLower(s.Location.Name)] = s
	}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, kind weather.Kind, req weather.Request) (*weather.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if f.err != nil {
		return nil, f.err
	}
	if kind != weather.KindForecast {
		return nil, fmt.Errorf("unexpected kind %q", kind)
	}
	snap, ok := f.snapshots[strings.ToLower(req.City)]
	if !ok {
		return nil, fmt.Errorf("fetching forecast weather for %s: %w: no matching location", req.City, weather.ErrLocationNotFound)
	}
	return snap, nil
}

func (f *fakeFetcher) calls() []weather.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]weather.Request(nil), f.requests...)
}

// ---- fixtures ----

type place struct {
	name     string
	lat, lon float64
}

var (
	karachi   = place{"Karachi", 24.87, 67.05}
	lahore    = place{"Lahore", 31.55, 74.34}
	islamabad = place{"Islamabad", 33.7, 73.17}
)

// at renders the wall-clock hour `hour` on the day `day` days after now.
func at(day, hour int) string {
	return now.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour).Format(weather.CanonicalLayout)
}

func hour(ts string, temp, humidity float64) weather.ForecastHour {
	h := weather.ForecastHour{Time: &ts}
	h.TempC = &temp
	h.HumidityPct = &humidity
	return h
}

func forecast(p place, hours ...weather.ForecastHour) *weather.Snapshot {
	return &weather.Snapshot{
		Kind:     weather.KindForecast,
		Location: &weather.Location{Name: p.name, Country: "Pakistan", Lat: p.lat, Lon: p.lon, TzID: "Asia/Karachi"},
		Days:     []weather.ForecastDay{{Hours: hours}},
	}
}

func newService(store report.Store, fetcher report.Fetcher) *report.Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return report.NewService(store, fetcher, lock.NewLocal(), log).
		WithClock(func() time.Time { return now })
}
