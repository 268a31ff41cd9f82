package beacon

import (
	"context"
	"fmt"
	"time"

	"cloudpico-aprs/internal/aprs"
	"cloudpico-aprs/internal/observation"
	"cloudpico-aprs/internal/units"
)

// Snapshot is one observation converted to APRS units, with rain
// accumulations filled in.
type Snapshot struct {
	Time time.Time
	aprs.Weather
}

// RainStore sums archived rain over (start, stop]. A nil result means no
// rows matched.
type RainStore interface {
	SumRain(ctx context.Context, start, stop time.Time) (*float64, error)
}

// DataAccessError is a failed rain query. It aborts the beacon it belongs to.
type DataAccessError struct {
	Window string
	Start  time.Time
	Stop   time.Time
	Err    error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s rain (%d, %d]: %v", e.Window, e.Start.Unix(), e.Stop.Unix(), e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// windows computes rain window starts relative to t. In wall-clock mode
// the hour and day are stepped back in local time, so windows that span a
// daylight saving change keep their local length.
type windows struct {
	loc       *time.Location
	wallClock bool
}

func (w windows) hourStart(t time.Time) time.Time {
	if !w.wallClock {
		return t.Add(-time.Hour)
	}
	l := t.In(w.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour()-1, l.Minute(), l.Second(), 0, w.loc)
}

func (w windows) dayStart(t time.Time) time.Time {
	if !w.wallClock {
		return t.Add(-24 * time.Hour)
	}
	return t.In(w.loc).AddDate(0, 0, -1)
}

// midnight is the start of t's local calendar day in either mode.
func (w windows) midnight(t time.Time) time.Time {
	l := t.In(w.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, w.loc)
}

type snapshotter struct {
	rain RainStore
	win  windows
}

func (s snapshotter) build(ctx context.Context, rec observation.Record) (Snapshot, error) {
	t := rec.Time()
	snap := Snapshot{Time: t}
	var err error

	snap.WindDir = rec.Value(observation.FieldWindDir)
	if snap.WindSpeed, err = convert(rec, observation.FieldWindSpeed, units.GroupSpeed, units.MilePerHour); err != nil {
		return Snapshot{}, err
	}
	if snap.WindGust, err = convert(rec, observation.FieldWindGust, units.GroupSpeed, units.MilePerHour); err != nil {
		return Snapshot{}, err
	}
	if snap.OutTemp, err = convert(rec, observation.FieldOutTemp, units.GroupTemperature, units.DegreeF); err != nil {
		return Snapshot{}, err
	}

	hour, err := s.sum(ctx, "hour", s.win.hourStart(t), t)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.HourRain, err = units.Convert(hour, units.GroupRain, rec.Units, units.Inch); err != nil {
		return Snapshot{}, err
	}

	rain24 := rec.Value(observation.FieldRain24)
	if !rec.Has(observation.FieldRain24) {
		if rain24, err = s.sum(ctx, "24h", s.win.dayStart(t), t); err != nil {
			return Snapshot{}, err
		}
	}
	if snap.Rain24, err = units.Convert(rain24, units.GroupRain, rec.Units, units.Inch); err != nil {
		return Snapshot{}, err
	}

	dayRain := rec.Value(observation.FieldDayRain)
	if !rec.Has(observation.FieldDayRain) {
		if dayRain, err = s.sum(ctx, "day", s.win.midnight(t), t); err != nil {
			return Snapshot{}, err
		}
	}
	if snap.DayRain, err = units.Convert(dayRain, units.GroupRain, rec.Units, units.Inch); err != nil {
		return Snapshot{}, err
	}

	snap.OutHumidity = rec.Value(observation.FieldOutHumidity)
	if snap.Barometer, err = convert(rec, observation.FieldBarometer, units.GroupPressure, units.Mbar); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s snapshotter) sum(ctx context.Context, window string, start, stop time.Time) (float64, error) {
	v, err := s.rain.SumRain(ctx, start, stop)
	if err != nil {
		return 0, &DataAccessError{Window: window, Start: start, Stop: stop, Err: err}
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

func convert(rec observation.Record, field string, g units.Group, to units.Unit) (float64, error) {
	v, err := units.Convert(rec.Value(field), g, rec.Units, to)
	if err != nil {
		return 0, fmt.Errorf("convert %s: %w", field, err)
	}
	return v, nil
}
