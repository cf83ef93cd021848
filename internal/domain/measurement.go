package domain

import "time"

// Series names in the time-series store. Fixed constants, never derived
// from payload content.
const (
	SeriesTemperature = "temperature"
	SeriesHumidity    = "humidity"
)

// Measurement is a single timestamped scalar sensor value.
type Measurement struct {
	Timestamp time.Time
	Value     float64
}

// Reading is one sensor reading event: a temperature and a humidity
// measurement sharing the same timestamp. The two measurements always
// travel together because they share provenance; a payload is accepted
// or rejected as a whole.
type Reading struct {
	Temperature Measurement
	Humidity    Measurement
}
