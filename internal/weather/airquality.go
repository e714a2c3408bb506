package weather

import "encoding/json"

// AirQuality is a PM2.5 severity label.
type AirQuality string

const (
	AirGood         AirQuality = "Good"
	AirSatisfactory AirQuality = "Satisfactory"
	AirModerate     AirQuality = "Moderate"
	AirPoor         AirQuality = "Poor"
	AirVeryPoor     AirQuality = "Very poor"
	AirSevere       AirQuality = "Severe"
)

// bands are checked top-down; each floor is exclusive.
var bands = []struct {
	floor float64
	label AirQuality
}{
	{250, AirSevere},
	{120, AirVeryPoor},
	{90, AirPoor},
	{60, AirModerate},
	{30, AirSatisfactory},
}

// Classify maps a PM2.5 concentration to its severity label.
// A nil concentration yields a nil label.
func Classify(pm25 *float64) *AirQuality {
	if pm25 == nil {
		return nil
	}
	label := AirGood
	for _, b := range bands {
		if *pm25 > b.floor {
			label = b.label
			break
		}
	}
	return &label
}

// Severity ranks the label from 0 (Good) to 5 (Severe); unknown labels rank -1.
func (a AirQuality) Severity() int {
	switch a {
	case AirGood:
		return 0
	case AirSatisfactory:
		return 1
	case AirModerate:
		return 2
	case AirPoor:
		return 3
	case AirVeryPoor:
		return 4
	case AirSevere:
		return 5
	}
	return -1
}

// AirReading is the air-quality slot of a reading. It is left out of JSON
// when air quality was not requested and encodes as null when requested
// but unknown.
type AirReading struct {
	Requested bool
	Label     *AirQuality
}

func (a AirReading) IsZero() bool { return !a.Requested }

func (a AirReading) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Label)
}

func (a *AirReading) UnmarshalJSON(b []byte) error {
	a.Requested = true
	return json.Unmarshal(b, &a.Label)
}
