package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/neexbeast/weather-insights/internal/weather"
)

// HottestHour is the warmest upcoming forecast hour for a city.
type HottestHour struct {
	City        string  `json:"city"`
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
}

// HumidCity is a city with its average humidity over the next week.
type HumidCity struct {
	City        string  `json:"city"`
	HumidityPct float64 `json:"humidity_percent"`
}

// SwingCity is a city with its average daily temperature swing.
type SwingCity struct {
	City         string  `json:"city"`
	AverageSwing float64 `json:"average_swing"`
}

// SwingDay is the calendar day with the widest temperature swing.
type SwingDay struct {
	City     string  `json:"city"`
	Date     string  `json:"date"`
	MaxTempC float64 `json:"max_temp_c"`
	MinTempC float64 `json:"min_temp_c"`
	Swing    float64 `json:"swing"`
}

// HottestHour returns the forecast hour with the highest temperature within
// [now, now+days]. Among equal temperatures the earliest hour wins.
func (s *Service) HottestHour(ctx context.Context, city string, days int) (*HottestHour, error) {
	if err := weather.ValidateDays(days); err != nil {
		return nil, err
	}

	loc, err := s.resolve(ctx, city, days)
	if err != nil {
		return nil, err
	}

	from, to := s.horizon(days)
	rows, err := s.store.ForecastHours(ctx, []int64{loc.ID}, from, to)
	if err != nil {
		return nil, err
	}

	var best *weather.HourRow
	for i := range rows {
		r := &rows[i]
		if r.TempC == nil {
			continue
		}
		if best == nil || *r.TempC > *best.TempC {
			best = r
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s has no temperatures in the next %d days", weather.ErrNoForecastData, loc.Name, days)
	}

	return &HottestHour{
		City:        loc.Name,
		Timestamp:   weather.FormatTimestamp(best.Time),
		Temperature: *best.TempC,
	}, nil
}

// SecondMostHumidCity ranks every stored location by average humidity over
// the next seven days and returns the runner-up.
func (s *Service) SecondMostHumidCity(ctx context.Context) (*HumidCity, error) {
	locs, err := s.store.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	if len(locs) < 2 {
		return nil, fmt.Errorf("%w: ranking humidity needs at least two locations, have %d", weather.ErrLocationNotFound, len(locs))
	}

	locs, err = s.ensureAll(ctx, weekDays)
	if err != nil {
		return nil, err
	}

	from, to := s.horizon(weekDays)
	rows, err := s.store.ForecastHours(ctx, ids(locs), from, to)
	if err != nil {
		return nil, err
	}

	humidity := make(map[int64][]float64)
	for _, r := range rows {
		if r.HumidityPct != nil {
			humidity[r.LocationID] = append(humidity[r.LocationID], *r.HumidityPct)
		}
	}

	var ranked []HumidCity
	for _, loc := range locs {
		avg, err := stats.Mean(humidity[loc.ID])
		if err != nil {
			continue
		}
		ranked = append(ranked, HumidCity{City: loc.Name, HumidityPct: avg})
	}
	if len(ranked) < 2 {
		return nil, fmt.Errorf("%w: only %d locations have humidity in the next %d days", weather.ErrNoForecastData, len(ranked), weekDays)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].HumidityPct > ranked[j].HumidityPct
	})

	second := ranked[1]
	second.HumidityPct = round2(second.HumidityPct)
	return &second, nil
}

// LowestAverageSwing averages each location's daily (max - min) temperature
// over the next days and returns the location with the smallest average.
func (s *Service) LowestAverageSwing(ctx context.Context, days int) (*SwingCity, error) {
	if err := weather.ValidateDays(days); err != nil {
		return nil, err
	}

	locs, err := s.ensureAll(ctx, days)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, fmt.Errorf("%w: no locations stored", weather.ErrLocationNotFound)
	}

	from, to := s.horizon(days)
	rows, err := s.store.ForecastHours(ctx, ids(locs), from, to)
	if err != nil {
		return nil, err
	}

	byLocation := make(map[int64][]weather.HourRow)
	for _, r := range rows {
		byLocation[r.LocationID] = append(byLocation[r.LocationID], r)
	}

	var best *SwingCity
	for _, loc := range locs {
		var swings []float64
		for _, d := range dailySwings(byLocation[loc.ID]) {
			swings = append(swings, d.swing())
		}
		avg, err := stats.Mean(swings)
		if err != nil {
			continue
		}
		if best == nil || avg < best.AverageSwing {
			best = &SwingCity{City: loc.Name, AverageSwing: avg}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no temperatures in the next %d days", weather.ErrNoForecastData, days)
	}

	best.AverageSwing = round2(best.AverageSwing)
	return best, nil
}

// WidestSwingDay returns the day in the next week on which city's
// temperature varies the most. Among equal swings the earliest day wins.
func (s *Service) WidestSwingDay(ctx context.Context, city string) (*SwingDay, error) {
	loc, err := s.resolve(ctx, city, weekDays)
	if err != nil {
		return nil, err
	}

	from, to := s.horizon(weekDays)
	rows, err := s.store.ForecastHours(ctx, []int64{loc.ID}, from, to)
	if err != nil {
		return nil, err
	}

	var widest *daySpan
	for _, d := range dailySwings(rows) {
		d := d
		if widest == nil || d.swing() > widest.swing() {
			widest = &d
		}
	}
	if widest == nil {
		return nil, fmt.Errorf("%w: %s has no temperatures in the next %d days", weather.ErrNoForecastData, loc.Name, weekDays)
	}

	return &SwingDay{
		City:     loc.Name,
		Date:     widest.date.Format(weather.DateLayout),
		MaxTempC: widest.max,
		MinTempC: widest.min,
		Swing:    round2(widest.swing()),
	}, nil
}

type daySpan struct {
	date     time.Time
	max, min float64
}

func (d daySpan) swing() float64 { return d.max - d.min }

// dailySwings groups rows by calendar day, ignoring hours without a
// temperature, and returns the days in chronological order.
func dailySwings(rows []weather.HourRow) []daySpan {
	temps := make(map[time.Time][]float64)
	for _, r := range rows {
		if r.TempC == nil {
			continue
		}
		d := dateOf(r.Time)
		temps[d] = append(temps[d], *r.TempC)
	}

	spans := make([]daySpan, 0, len(temps))
	for d, ts := range temps {
		hi, _ := stats.Max(ts)
		lo, _ := stats.Min(ts)
		spans = append(spans, daySpan{date: d, max: hi, min: lo})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].date.Before(spans[j].date) })
	return spans
}

func ids(locs []weather.Location) []int64 {
	out := make([]int64, len(locs))
	for i, l := range locs {
		out[i] = l.ID
	}
	return out
}

func round2(v float64) float64 {
	r, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}
