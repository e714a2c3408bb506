package weather_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/weather-insights/internal/weather"
)

func TestClient_Get_SendsKeyAndParams(t *testing.T) {
	var got url.Values
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	c := weather.NewClientWithURL(srv.URL, "test-key")
	body, err := c.Get(context.Background(), "current.json", url.Values{"q": {"Karachi"}, "aqi": {"yes"}})
	require.NoError(t, err)
	assert.JSONEq(t, currentBody, string(body))
	assert.Equal(t, "/current.json", path)
	assert.Equal(t, "test-key", got.Get("key"))
	assert.Equal(t, "Karachi", got.Get("q"))
	assert.Equal(t, "yes", got.Get("aqi"))
}

func TestClient_Get_LocationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 1006, "message": "No matching location found."}}`))
	}))
	defer srv.Close()

	c := weather.NewClientWithURL(srv.URL, "test-key")
	_, err := c.Get(context.Background(), "forecast.json", url.Values{"q": {"Atlantis"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrLocationNotFound))
}

func TestClient_Get_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"code": 2006, "message": "API key is invalid."}}`))
	}))
	defer srv.Close()

	c := weather.NewClientWithURL(srv.URL, "bad-key")
	_, err := c.Get(context.Background(), "current.json", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrUpstream))
	assert.Contains(t, err.Error(), "API key is invalid")
}

func TestClient_Get_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := weather.NewClientWithURL(srv.URL, "test-key")
	_, err := c.Get(context.Background(), "current.json", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrUpstream))
}

func TestClient_Get_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := weather.NewClientWithURL(srv.URL, "test-key")
	_, err := c.Get(context.Background(), "current.json", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrUpstream))
}

func TestClient_Get_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"code": 9999, "message": "Internal application error."}}`))
	}))
	defer srv.Close()

	c := weather.NewClientWithURL(srv.URL, "test-key")
	_, err := c.Get(context.Background(), "current.json", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_WithRateLimit_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := weather.NewClientWithURL(srv.URL, "test-key").WithRateLimit(0.001, 1)
	_, err := c.Get(context.Background(), "current.json", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, "current.json", nil)
	require.Error(t, err)
}
