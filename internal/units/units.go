// Package units converts observation values between the unit systems a
// weather station may report in.
package units

import (
	"fmt"
)

// System is a station unit system, using the weewx usUnits codes.
type System int

const (
	US       System = 0x01
	Metric   System = 0x10
	MetricWX System = 0x11
)

func (s System) String() string {
	switch s {
	case US:
		return "US"
	case Metric:
		return "METRIC"
	case MetricWX:
		return "METRICWX"
	default:
		return fmt.Sprintf("System(%d)", int(s))
	}
}

// Group is the physical quantity of an observation.
type Group string

const (
	GroupSpeed       Group = "group_speed"
	GroupTemperature Group = "group_temperature"
	GroupRain        Group = "group_rain"
	GroupPressure    Group = "group_pressure"
)

type Unit string

const (
	MilePerHour    Unit = "mile_per_hour"
	KmPerHour      Unit = "km_per_hour"
	MeterPerSecond Unit = "meter_per_second"
	DegreeF        Unit = "degree_F"
	DegreeC        Unit = "degree_C"
	Inch           Unit = "inch"
	Cm             Unit = "cm"
	Mm             Unit = "mm"
	InHg           Unit = "inHg"
	Mbar           Unit = "mbar"
)

var standard = map[System]map[Group]Unit{
	US: {
		GroupSpeed:       MilePerHour,
		GroupTemperature: DegreeF,
		GroupRain:        Inch,
		GroupPressure:    InHg,
	},
	Metric: {
		GroupSpeed:       KmPerHour,
		GroupTemperature: DegreeC,
		GroupRain:        Cm,
		GroupPressure:    Mbar,
	},
	MetricWX: {
		GroupSpeed:       MeterPerSecond,
		GroupTemperature: DegreeC,
		GroupRain:        Mm,
		GroupPressure:    Mbar,
	},
}

// Linear units, as the factor to the group's base unit
// (m/s, mm, mbar). Temperature is handled separately.
var toBase = map[Unit]float64{
	MeterPerSecond: 1,
	KmPerHour:      1 / 3.6,
	MilePerHour:    0.44704,
	Mm:             1,
	Cm:             10,
	Inch:           25.4,
	Mbar:           1,
	InHg:           33.86388666666671,
}

var groupOf = map[Unit]Group{
	MilePerHour:    GroupSpeed,
	KmPerHour:      GroupSpeed,
	MeterPerSecond: GroupSpeed,
	DegreeF:        GroupTemperature,
	DegreeC:        GroupTemperature,
	Inch:           GroupRain,
	Cm:             GroupRain,
	Mm:             GroupRain,
	InHg:           GroupPressure,
	Mbar:           GroupPressure,
}

// StandardUnit returns the unit the system uses for group.
func StandardUnit(s System, g Group) (Unit, error) {
	groups, ok := standard[s]
	if !ok {
		return "", fmt.Errorf("unknown unit system %s", s)
	}
	u, ok := groups[g]
	if !ok {
		return "", fmt.Errorf("no %s unit in %s", g, s)
	}
	return u, nil
}

// Convert converts v, expressed in the standard unit of group g for system
// from, into unit to. Values already in the target unit are returned as is.
func Convert(v float64, g Group, from System, to Unit) (float64, error) {
	fromUnit, err := StandardUnit(from, g)
	if err != nil {
		return 0, err
	}
	if groupOf[to] != g {
		return 0, fmt.Errorf("cannot convert %s to %s", g, to)
	}
	if fromUnit == to {
		return v, nil
	}

	if g == GroupTemperature {
		switch to {
		case DegreeF:
			return v*1.8 + 32, nil
		case DegreeC:
			return (v - 32) / 1.8, nil
		}
	}
	return v * toBase[fromUnit] / toBase[to], nil
}
