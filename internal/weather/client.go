package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	httpTimeout    = 10 * time.Second
	DefaultBaseURL = "http://api.weatherapi.com/v1/"

	// codeNoLocation is WeatherAPI.com's "No matching location found" error.
	codeNoLocation = 1006
)

// Client issues raw GET requests against the WeatherAPI.com endpoints.
// It never retries; the limiter only spaces requests out.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a Client for the production API.
func NewClient(apiKey string) *Client {
	return NewClientWithURL(DefaultBaseURL, apiKey)
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL, apiKey string) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: httpTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst.
// A non-positive rps leaves the client unthrottled.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c
}

type apiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Get requests endpoint with params plus the API key and returns the raw body.
// The HTTP status is not inspected; an error object in the body is.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", c.apiKey)
	rawURL := c.baseURL + endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for %s: %v", ErrUpstream, endpoint, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response from %s: %v", ErrUpstream, endpoint, err)
	}

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response from %s (status %d): %v", ErrUpstream, endpoint, resp.StatusCode, err)
	}
	if envelope.Error != nil {
		if envelope.Error.Code == codeNoLocation {
			return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, envelope.Error.Message)
		}
		return nil, fmt.Errorf("%w: %s returned error %d: %s", ErrUpstream, endpoint, envelope.Error.Code, envelope.Error.Message)
	}

	return body, nil
}
