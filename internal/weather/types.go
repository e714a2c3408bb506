package weather

import "time"

// Kind selects which upstream endpoint and mapper a fetch uses.
type Kind string

const (
	KindCurrent  Kind = "current"
	KindForecast Kind = "forecast"
)

// ParseKind validates a user-supplied kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCurrent, KindForecast:
		return Kind(s), nil
	}
	return "", invalidInput("type must be %q or %q, got %q", KindCurrent, KindForecast, s)
}

// Location is a place as reported by the upstream service.
// Its natural key is the (Lat, Lon) pair; ID is assigned by the store.
type Location struct {
	ID      int64   `json:"-"`
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	TzID    string  `json:"tz_id"`
}

// Atmosphere is the field set shared by every reading, hourly or daily.
type Atmosphere struct {
	Condition    *string     `json:"condition"`
	HumidityPct  *float64    `json:"humidity_percent"`
	VisibilityKm *float64    `json:"visibility_km"`
	AirQuality   AirReading `json:"air_quality,omitzero"`
}

// Thermals is the field set carried by point-in-time readings.
type Thermals struct {
	TempC      *float64 `json:"temp_c"`
	FeelsLikeC *float64 `json:"feelslike_c"`
	WindMph    *float64 `json:"wind_mph"`
	PressureIn *float64 `json:"wind_pressure_in"`
	CloudPct   *float64 `json:"cloud_cover_percent"`
}

// Precipitation holds forecast-only probabilities.
type Precipitation struct {
	ChanceOfRain *float64 `json:"chance_of_rain"`
	ChanceOfSnow *float64 `json:"chance_of_snow"`
}

// CurrentReading is one observation from current.json.
type CurrentReading struct {
	Time *string `json:"date_time"`
	Atmosphere
	Thermals
}

// ForecastHour is one hourly row of a forecast.
type ForecastHour struct {
	Time *string `json:"date_time"`
	Atmosphere
	Thermals
	Precipitation
	GustMph   *float64 `json:"gust_mph"`
	DewPointC *float64 `json:"dewpoint_c"`
}

// ForecastDay is the day-level aggregate reported alongside its hours.
type ForecastDay struct {
	Date       *string  `json:"date"`
	MaxTempC   *float64 `json:"max_temp_c"`
	MinTempC   *float64 `json:"min_temp_c"`
	MaxWindMph *float64 `json:"max_wind_mph"`
	Atmosphere
	Precipitation
	Hours []ForecastHour `json:"hours"`
}

// Snapshot is the normalized result of one fetch. Exactly one of Current
// and Days is populated, depending on Kind.
type Snapshot struct {
	Kind     Kind            `json:"type"`
	Location *Location       `json:"location"`
	Current  *CurrentReading `json:"current,omitempty"`
	Days     []ForecastDay   `json:"forecast_days,omitempty"`
}

// Hours returns every forecast hour in the snapshot, in upstream order.
func (s *Snapshot) Hours() []ForecastHour {
	var hours []ForecastHour
	for _, d := range s.Days {
		hours = append(hours, d.Hours...)
	}
	return hours
}

// HourRow is a persisted forecast hour as read back by the analytics layer.
type HourRow struct {
	LocationID  int64
	Time        time.Time
	TempC       *float64
	HumidityPct *float64
}
