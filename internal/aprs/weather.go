package aprs

import (
	"fmt"
	"strings"
)

// Weather is one observation in APRS units: degrees, mph, °F, inches,
// percent and mbar.
type Weather struct {
	WindDir     float64
	WindSpeed   float64
	WindGust    float64
	OutTemp     float64
	HourRain    float64
	Rain24      float64
	DayRain     float64
	OutHumidity float64
	Barometer   float64
}

// WeatherFields renders the fixed order weather fields followed by a space
// and comment, e.g. "090/010g015t072r000p012P004h40b10132 comment".
//
// Every value is truncated toward zero. Values wider than their field are
// not clamped.
func WeatherFields(w Weather, comment string) string {
	humidity := w.OutHumidity
	if humidity < 0 || humidity >= 100 {
		humidity = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%03d", int(w.WindDir))
	fmt.Fprintf(&b, "/%03d", int(w.WindSpeed))
	fmt.Fprintf(&b, "g%03d", int(w.WindGust))
	fmt.Fprintf(&b, "t%03d", int(w.OutTemp))
	fmt.Fprintf(&b, "r%03d", int(w.HourRain*100))
	fmt.Fprintf(&b, "p%03d", int(w.Rain24*100))
	fmt.Fprintf(&b, "P%03d", int(w.DayRain*100))
	fmt.Fprintf(&b, "h%02d", int(humidity))
	fmt.Fprintf(&b, "b%05d", int(w.Barometer*10))
	b.WriteByte(' ')
	b.WriteString(comment)
	return b.String()
}
