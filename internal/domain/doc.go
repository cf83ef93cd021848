// Package domain models DHT22 temperature/humidity readings and their
// MQTT wire format.
//
// # Wire Format
//
// The sensor (or the fake-dht simulator) publishes one JSON object per
// reading event:
//
//	{"timestamp":"2024-01-01 12:00:00 UTC","temperature":18.4,"humidity":51.2}
//
// The timestamp uses the fixed layout "2006-01-02 15:04:05 MST" — ISO date,
// 24-hour time, and a timezone abbreviation. Temperature is degrees Celsius,
// humidity is percent relative humidity. Extra keys are tolerated and
// ignored; a missing or mistyped key invalidates the whole payload.
//
// # Series
//
// Each accepted reading yields exactly two points in the time-series store:
// one on the "temperature" series and one on the "humidity" series, both
// carrying a single field named "value" and the shared reading timestamp.
// Series names are constants of this package, never derived from data.
package domain
