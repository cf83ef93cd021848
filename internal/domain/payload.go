package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the fixed wire format for the payload timestamp:
// ISO date, 24-hour time, timezone abbreviation ("%F %T %Z").
const TimestampLayout = "2006-01-02 15:04:05 MST"

// ParseError reports a payload that could not be decoded into a reading.
// It carries a human-readable reason and, where one exists, the underlying
// decoder error.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse payload: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// wirePayload mirrors the sensor message body. Pointer fields distinguish
// a missing key from a zero value so partial payloads can be rejected.
type wirePayload struct {
	Timestamp   *string  `json:"timestamp"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// ParsePayload decodes a JSON message body into a temperature/humidity
// reading. All three fields are required; extra fields are ignored. Any
// missing or malformed field rejects the whole payload, since both
// measurements originate from one sensor reading event. Pure function,
// never panics past this boundary.
func ParsePayload(payload []byte) (Reading, error) {
	var wire wirePayload
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Reading{}, &ParseError{Reason: "invalid JSON", Err: err}
	}

	if wire.Timestamp == nil {
		return Reading{}, &ParseError{Reason: `missing field "timestamp"`}
	}
	if wire.Temperature == nil {
		return Reading{}, &ParseError{Reason: `missing field "temperature"`}
	}
	if wire.Humidity == nil {
		return Reading{}, &ParseError{Reason: `missing field "humidity"`}
	}

	timestamp, err := time.Parse(TimestampLayout, *wire.Timestamp)
	if err != nil {
		return Reading{}, &ParseError{
			Reason: fmt.Sprintf("timestamp %q does not match %q", *wire.Timestamp, TimestampLayout),
			Err:    err,
		}
	}

	return Reading{
		Temperature: Measurement{Timestamp: timestamp, Value: *wire.Temperature},
		Humidity:    Measurement{Timestamp: timestamp, Value: *wire.Humidity},
	}, nil
}

// EncodePayload serializes a reading into the wire format consumed by
// ParsePayload. The temperature measurement's timestamp is used for the
// shared timestamp field.
func EncodePayload(r Reading) ([]byte, error) {
	ts := r.Temperature.Timestamp.Format(TimestampLayout)
	wire := wirePayload{
		Timestamp:   &ts,
		Temperature: &r.Temperature.Value,
		Humidity:    &r.Humidity.Value,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}
