package report_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/weather-insights/internal/weather"
)

const karachiForecast = `{
	"location": {"name": "Karachi", "country": "Pakistan", "lat": 24.87, "lon": 67.05, "tz_id": "Asia/Karachi"},
	"forecast": {"forecastday": [{
		"date": "2023-03-25",
		"day": {"maxtemp_c": 33, "mintemp_c": 21},
		"hour": [
			{"time": "2023-03-25 02:00", "temp_c": 21, "humidity": 60},
			{"time": "2023-03-25 14:00", "temp_c": 33, "humidity": 40}
		]
	}]}
}`

// upstream is an httptest WeatherAPI that records the days of every forecast call.
type upstream struct {
	mu   sync.Mutex
	days []string
}

func newUpstream(t *testing.T) (*upstream, *weather.Fetcher) {
	t.Helper()
	u := &upstream{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.days = append(u.days, r.URL.Query().Get("days"))
		u.mu.Unlock()
		if r.URL.Path != "/forecast.json" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": {"code": 1005, "message": "API request url is invalid."}}`)
			return
		}
		fmt.Fprint(w, karachiForecast)
	}))
	t.Cleanup(srv.Close)
	return u, weather.NewFetcher(weather.NewClientWithURL(srv.URL, "test-key"))
}

func (u *upstream) calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.days...)
}

func TestHottestHour_LongHorizonThroughFetcher(t *testing.T) {
	tests := []struct {
		days     int
		sentDays string
	}{
		{14, "14"},
		{15, "14"},
		{20, "14"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("days=%d", tt.days), func(t *testing.T) {
			u, fetcher := newUpstream(t)
			svc := newService(newMemStore(), fetcher)

			got, err := svc.HottestHour(context.Background(), "Karachi", tt.days)
			require.NoError(t, err)
			assert.Equal(t, "Karachi", got.City)
			assert.Equal(t, "2023-03-25 14:00:00", got.Timestamp)
			assert.Equal(t, 33.0, got.Temperature)
			assert.Equal(t, []string{tt.sentDays}, u.calls())
		})
	}
}

func TestLongHorizon_CoveredStoreIsNotRefetched(t *testing.T) {
	u, fetcher := newUpstream(t)
	store := newMemStore()
	seed(t, store, twoWeeks(karachi, 3, 14, 35), twoWeeks(lahore, 4, 14, 36))
	svc := newService(store, fetcher)

	require.NoError(t, svc.RefreshAll(context.Background(), 20))

	got, err := svc.LowestAverageSwing(context.Background(), 15)
	require.NoError(t, err)
	assert.NotEmpty(t, got.City)

	assert.Empty(t, u.calls())
	assert.Zero(t, store.saves)
}
