package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxForecastDays is the longest forecast the upstream returns.
const MaxForecastDays = 14

// rawGetter is the interface satisfied by Client.
type rawGetter interface {
	Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// Request describes one fetch. Exactly one of City and USZip must be set.
// Days and Hour only apply to forecasts; Days of 0 means 1.
type Request struct {
	City       string `validate:"required_without=USZip,excluded_with=USZip"`
	USZip      string `validate:"required_without=City,excluded_with=City"`
	AirQuality bool
	Days       int  `validate:"omitempty,min=1,max=14"` // max is MaxForecastDays
	Hour       *int `validate:"omitempty,min=0,max=23"`
}

func (r Request) query() string {
	if r.USZip != "" {
		return r.USZip
	}
	return r.City
}

// Fetcher validates requests, calls the upstream endpoint and maps the body.
type Fetcher struct {
	client   rawGetter
	validate *validator.Validate
}

// NewFetcher constructs a Fetcher backed by client.
func NewFetcher(client *Client) *Fetcher {
	return NewFetcherWithClient(client)
}

// NewFetcherWithClient constructs a Fetcher with an injectable getter (used in tests).
func NewFetcherWithClient(c rawGetter) *Fetcher {
	return &Fetcher{client: c, validate: validator.New()}
}

// Fetch retrieves and normalizes data of the given kind. Transport and
// decoding failures are returned as-is; nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, kind Kind, req Request) (*Snapshot, error) {
	req.City = strings.TrimSpace(req.City)
	req.USZip = strings.TrimSpace(req.USZip)

	if err := f.check(req); err != nil {
		return nil, err
	}

	mapper, err := MapperFor(kind)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", req.query())
	params.Set("aqi", yesNo(req.AirQuality))
	if kind == KindForecast {
		days := req.Days
		if days == 0 {
			days = 1
		}
		params.Set("days", strconv.Itoa(days))
		if req.Hour != nil {
			params.Set("hour", strconv.Itoa(*req.Hour))
		}
	}

	slog.Debug("requesting weather data", "type", kind, "q", req.query(), "aqi", req.AirQuality)

	body, err := f.client.Get(ctx, mapper.Endpoint(), params)
	if err != nil {
		return nil, fmt.Errorf("fetching %s weather for %s: %w", kind, req.query(), err)
	}

	snap, err := mapper.Map(body, req.AirQuality)
	if err != nil {
		return nil, fmt.Errorf("mapping %s weather for %s: %w", kind, req.query(), err)
	}
	return snap, nil
}

// check translates validator failures into ErrInvalidInput.
func (f *Fetcher) check(req Request) error {
	err := f.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required_without":
		return invalidInput("location required: set a city or a US zip code")
	case "excluded_with":
		return invalidInput("set either a city or a US zip code, not both")
	default:
		return invalidInput("%s is out of range (%s=%s)", strings.ToLower(fe.Field()), fe.Tag(), fe.Param())
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
