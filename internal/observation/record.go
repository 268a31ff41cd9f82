// Package observation holds the weather records delivered by the station.
package observation

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"cloudpico-aprs/internal/units"
)

// Kind tells whether a record is a real-time loop packet or a periodic
// archive record.
type Kind string

const (
	KindLoop    Kind = "loop"
	KindArchive Kind = "archive"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLoop, KindArchive:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("invalid record kind %q (allowed: loop, archive)", s)
	}
}

// Field names, as published by the station.
const (
	FieldDateTime    = "dateTime"
	FieldUSUnits     = "usUnits"
	FieldInterval    = "interval"
	FieldWindDir     = "windDir"
	FieldWindSpeed   = "windSpeed"
	FieldWindGust    = "windGust"
	FieldOutTemp     = "outTemp"
	FieldOutHumidity = "outHumidity"
	FieldBarometer   = "barometer"
	FieldRain        = "rain"
	FieldRain24      = "rain24"
	FieldDayRain     = "dayRain"
)

// Record is one station packet: named numeric fields, each of which may be
// missing or null.
type Record struct {
	DateTime int64
	Units    units.System
	fields   map[string]*float64
}

// NewRecord builds a record from a field map. The map is copied.
func NewRecord(dateTime int64, system units.System, fields map[string]*float64) Record {
	cp := make(map[string]*float64, len(fields))
	for k, v := range fields {
		if v != nil {
			x := *v
			v = &x
		}
		cp[k] = v
	}
	return Record{DateTime: dateTime, Units: system, fields: cp}
}

// Parse decodes a JSON object of numeric (or null) fields. dateTime and
// usUnits are required.
func Parse(payload []byte) (Record, error) {
	var raw map[string]*float64
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}

	dt := raw[FieldDateTime]
	if dt == nil || *dt <= 0 {
		return Record{}, fmt.Errorf("%s is required", FieldDateTime)
	}
	us := raw[FieldUSUnits]
	if us == nil {
		return Record{}, fmt.Errorf("%s is required", FieldUSUnits)
	}
	system := units.System(int(*us))
	if _, err := units.StandardUnit(system, units.GroupTemperature); err != nil {
		return Record{}, fmt.Errorf("%s: %w", FieldUSUnits, err)
	}

	delete(raw, FieldDateTime)
	delete(raw, FieldUSUnits)
	return Record{DateTime: int64(math.Floor(*dt)), Units: system, fields: raw}, nil
}

// Time is the record timestamp.
func (r Record) Time() time.Time {
	return time.Unix(r.DateTime, 0)
}

// Has reports whether name is present, even if null.
func (r Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Lookup returns the value of name and whether it is present and not null.
func (r Record) Lookup(name string) (float64, bool) {
	v := r.fields[name]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Value returns the value of name, or 0 when missing or null.
func (r Record) Value(name string) float64 {
	v, _ := r.Lookup(name)
	return v
}

// MarshalJSON renders the record back into the wire format.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64, len(r.fields)+2)
	for k, v := range r.fields {
		out[k] = v
	}
	dt := float64(r.DateTime)
	us := float64(r.Units)
	out[FieldDateTime] = &dt
	out[FieldUSUnits] = &us
	return json.Marshal(out)
}
