package weather

import (
	"encoding/json"
	"fmt"
)

// Mapper turns a raw upstream body into a Snapshot.
type Mapper interface {
	Kind() Kind
	Endpoint() string
	Map(body []byte, withAirQuality bool) (*Snapshot, error)
}

// MapperFor returns the mapper for the given kind.
func MapperFor(kind Kind) (Mapper, error) {
	switch kind {
	case KindCurrent:
		return CurrentMapper{}, nil
	case KindForecast:
		return ForecastMapper{}, nil
	}
	return nil, invalidInput("unknown fetch type %q", kind)
}

// ---- upstream payload ----
// Every leaf is a pointer so that a missing field stays nil.

type apiCondition struct {
	Text *string `json:"text"`
}

type apiAirQuality struct {
	PM25 *float64 `json:"pm2_5"`
}

type apiLocation struct {
	Name      *string  `json:"name"`
	Region    *string  `json:"region"`
	Country   *string  `json:"country"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	TzID      *string  `json:"tz_id"`
	Localtime *string  `json:"localtime"`
}

type apiReading struct {
	Time         *string        `json:"time"`
	TempC        *float64       `json:"temp_c"`
	Condition    *apiCondition  `json:"condition"`
	FeelsLikeC   *float64       `json:"feelslike_c"`
	WindMph      *float64       `json:"wind_mph"`
	PressureIn   *float64       `json:"pressure_in"`
	Humidity     *float64       `json:"humidity"`
	Cloud        *float64       `json:"cloud"`
	VisKm        *float64       `json:"vis_km"`
	GustMph      *float64       `json:"gust_mph"`
	DewPointC    *float64       `json:"dewpoint_c"`
	ChanceOfRain *float64       `json:"chance_of_rain"`
	ChanceOfSnow *float64       `json:"chance_of_snow"`
	AirQuality   *apiAirQuality `json:"air_quality"`
}

type apiDay struct {
	MaxTempC          *float64       `json:"maxtemp_c"`
	MinTempC          *float64       `json:"mintemp_c"`
	MaxWindMph        *float64       `json:"maxwind_mph"`
	AvgHumidity       *float64       `json:"avghumidity"`
	AvgVisKm          *float64       `json:"avgvis_km"`
	DailyChanceOfRain *float64       `json:"daily_chance_of_rain"`
	DailyChanceOfSnow *float64       `json:"daily_chance_of_snow"`
	Condition         *apiCondition  `json:"condition"`
	AirQuality        *apiAirQuality `json:"air_quality"`
}

type apiForecastDay struct {
	Date *string      `json:"date"`
	Day  *apiDay      `json:"day"`
	Hour []apiReading `json:"hour"`
}

type apiResponse struct {
	Location *apiLocation `json:"location"`
	Current  *apiReading  `json:"current"`
	Forecast *struct {
		ForecastDay []apiForecastDay `json:"forecastday"`
	} `json:"forecast"`
}

func decode(body []byte) (*apiResponse, error) {
	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return &raw, nil
}

func (c *apiCondition) text() *string {
	if c == nil {
		return nil
	}
	return c.Text
}

func (a *apiAirQuality) label(enabled bool) AirReading {
	if !enabled {
		return AirReading{}
	}
	if a == nil {
		return AirReading{Requested: true}
	}
	return AirReading{Requested: true, Label: Classify(a.PM25)}
}

// mapLocation returns nil when the payload lacks the natural key or a name.
func mapLocation(l *apiLocation) *Location {
	if l == nil || l.Lat == nil || l.Lon == nil || l.Name == nil {
		return nil
	}
	return &Location{
		Name:    *l.Name,
		Region:  deref(l.Region),
		Country: deref(l.Country),
		Lat:     *l.Lat,
		Lon:     *l.Lon,
		TzID:    deref(l.TzID),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *apiReading) atmosphere(withAirQuality bool) Atmosphere {
	return Atmosphere{
		Condition:    r.Condition.text(),
		HumidityPct:  r.Humidity,
		VisibilityKm: r.VisKm,
		AirQuality:   r.AirQuality.label(withAirQuality),
	}
}

func (r *apiReading) thermals() Thermals {
	return Thermals{
		TempC:      r.TempC,
		FeelsLikeC: r.FeelsLikeC,
		WindMph:    r.WindMph,
		PressureIn: r.PressureIn,
		CloudPct:   r.Cloud,
	}
}

// CurrentMapper maps current.json responses.
type CurrentMapper struct{}

func (CurrentMapper) Kind() Kind       { return KindCurrent }
func (CurrentMapper) Endpoint() string { return "current.json" }

// Map builds a Snapshot holding a single CurrentReading. The observation
// time is the location's local time.
func (CurrentMapper) Map(body []byte, withAirQuality bool) (*Snapshot, error) {
	raw, err := decode(body)
	if err != nil {
		return nil, err
	}

	var localtime *string
	if raw.Location != nil {
		localtime = raw.Location.Localtime
	}
	ts, err := NormalizeTimestamp(localtime)
	if err != nil {
		return nil, fmt.Errorf("mapping current observation time: %w", err)
	}

	cur := raw.Current
	if cur == nil {
		cur = &apiReading{}
	}

	return &Snapshot{
		Kind:     KindCurrent,
		Location: mapLocation(raw.Location),
		Current: &CurrentReading{
			Time:       ts,
			Atmosphere: cur.atmosphere(withAirQuality),
			Thermals:   cur.thermals(),
		},
	}, nil
}

// ForecastMapper maps forecast.json responses.
type ForecastMapper struct{}

func (ForecastMapper) Kind() Kind       { return KindForecast }
func (ForecastMapper) Endpoint() string { return "forecast.json" }

// Map flattens forecast.forecastday[] into day aggregates, each carrying its hours.
func (ForecastMapper) Map(body []byte, withAirQuality bool) (*Snapshot, error) {
	raw, err := decode(body)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Kind:     KindForecast,
		Location: mapLocation(raw.Location),
		Days:     []ForecastDay{},
	}
	if raw.Forecast == nil {
		return snap, nil
	}

	for _, fd := range raw.Forecast.ForecastDay {
		day := fd.Day
		if day == nil {
			day = &apiDay{}
		}

		out := ForecastDay{
			Date:       fd.Date,
			MaxTempC:   day.MaxTempC,
			MinTempC:   day.MinTempC,
			MaxWindMph: day.MaxWindMph,
			Atmosphere: Atmosphere{
				Condition:    day.Condition.text(),
				HumidityPct:  day.AvgHumidity,
				VisibilityKm: day.AvgVisKm,
				AirQuality:   day.AirQuality.label(withAirQuality),
			},
			Precipitation: Precipitation{
				ChanceOfRain: day.DailyChanceOfRain,
				ChanceOfSnow: day.DailyChanceOfSnow,
			},
			Hours: make([]ForecastHour, 0, len(fd.Hour)),
		}

		for i := range fd.Hour {
			h := &fd.Hour[i]
			ts, err := NormalizeTimestamp(h.Time)
			if err != nil {
				return nil, fmt.Errorf("mapping forecast hour: %w", err)
			}
			out.Hours = append(out.Hours, ForecastHour{
				Time:       ts,
				Atmosphere: h.atmosphere(withAirQuality),
				Thermals:   h.thermals(),
				Precipitation: Precipitation{
					ChanceOfRain: h.ChanceOfRain,
					ChanceOfSnow: h.ChanceOfSnow,
				},
				GustMph:   h.GustMph,
				DewPointC: h.DewPointC,
			})
		}

		snap.Days = append(snap.Days, out)
	}

	return snap, nil
}
