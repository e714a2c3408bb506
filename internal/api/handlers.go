package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/weather-insights/internal/weather"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	fetcher  WeatherFetcher
	store    SnapshotStore
	reporter Reporter
	log      *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(fetcher WeatherFetcher, store SnapshotStore, reporter Reporter, log *slog.Logger) *Handlers {
	return &Handlers{
		fetcher:  fetcher,
		store:    store,
		reporter: reporter,
		log:      log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes; anything unrecognised is a 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, weather.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, weather.ErrLocationNotFound), errors.Is(err, weather.ErrNoForecastData):
		status = http.StatusNotFound
	case errors.Is(err, weather.ErrUpstream), errors.Is(err, weather.ErrFormat):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	h.log.Warn("request rejected", "path", r.URL.Path, "status", status, "err", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// parseRequest reads city, us_zip, aqi, days and hour from the query string.
func parseRequest(r *http.Request) (weather.Kind, weather.Request, error) {
	kind, err := weather.ParseKind(chi.URLParam(r, "type"))
	if err != nil {
		return "", weather.Request{}, err
	}

	q := r.URL.Query()
	req := weather.Request{
		City:       q.Get("city"),
		USZip:      q.Get("us_zip"),
		AirQuality: parseBool(q.Get("aqi")),
	}

	if v := q.Get("days"); v != "" {
		if req.Days, err = strconv.Atoi(v); err != nil {
			return "", req, fmt.Errorf("%w: days must be an integer", weather.ErrInvalidInput)
		}
	}
	if v := q.Get("hour"); v != "" {
		hour, err := strconv.Atoi(v)
		if err != nil {
			return "", req, fmt.Errorf("%w: hour must be an integer", weather.ErrInvalidInput)
		}
		req.Hour = &hour
	}

	return kind, req, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// queryDays parses the required days parameter; range checks happen in the report.
func queryDays(r *http.Request) (int, error) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		return 0, fmt.Errorf("%w: days must be an integer", weather.ErrInvalidInput)
	}
	return days, nil
}

func queryCity(r *http.Request) (string, error) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		return "", fmt.Errorf("%w: city is required", weather.ErrInvalidInput)
	}
	return city, nil
}

// GetWeather handles GET /api/v1/weather/{type}.
// Fetches and returns normalized data without storing it.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	kind, req, err := parseRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	snap, err := h.fetcher.Fetch(r.Context(), kind, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// RefreshWeather handles POST /api/v1/weather/{type}/refresh.
// Fetches fresh data and upserts it.
func (h *Handlers) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	kind, req, err := parseRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	snap, err := h.fetcher.Fetch(r.Context(), kind, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	loc, err := h.store.SaveSnapshot(r.Context(), snap)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("snapshot saved", "type", kind, "location", loc.Name, "location_id", loc.ID)

	writeJSON(w, http.StatusOK, snap)
}

// HottestHour handles GET /api/v1/reports/hottest-hour?city=&days=.
func (h *Handlers) HottestHour(w http.ResponseWriter, r *http.Request) {
	city, err := queryCity(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	days, err := queryDays(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.reporter.HottestHour(r.Context(), city, days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SecondMostHumid handles GET /api/v1/reports/second-most-humid.
func (h *Handlers) SecondMostHumid(w http.ResponseWriter, r *http.Request) {
	res, err := h.reporter.SecondMostHumidCity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// LowestAverageSwing handles GET /api/v1/reports/lowest-average-swing?days=.
func (h *Handlers) LowestAverageSwing(w http.ResponseWriter, r *http.Request) {
	days, err := queryDays(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.reporter.LowestAverageSwing(r.Context(), days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// WidestSwingDay handles GET /api/v1/reports/widest-swing-day?city=.
func (h *Handlers) WidestSwingDay(w http.ResponseWriter, r *http.Request) {
	city, err := queryCity(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.reporter.WidestSwingDay(r.Context(), city)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Pinger is a dependency the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
// A nil redis pinger reports "disabled" and does not degrade the status.
func HealthHandlerFunc(db, redis Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "disabled"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if redis != nil {
			redisStatus = "ok"
			if err := redis.Ping(ctx); err != nil {
				log.Error("health check: redis ping failed", "err", err)
				redisStatus = "error"
				status = http.StatusServiceUnavailable
			}
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
