package aprs

import (
	"fmt"
	"strings"
	"time"
)

// Symbol is an APRS symbol table identifier and symbol code, e.g. "/_"
// for a weather station.
type Symbol struct {
	Table byte
	Code  byte
}

var WeatherStation = Symbol{Table: '/', Code: '_'}

// ParseSymbol accepts exactly two printable ASCII characters.
func ParseSymbol(s string) (Symbol, error) {
	if len(s) != 2 {
		return Symbol{}, fmt.Errorf("symbol %q: want table and code (2 characters)", s)
	}
	for i := 0; i < 2; i++ {
		if s[i] < '!' || s[i] > '~' {
			return Symbol{}, fmt.Errorf("symbol %q: character %q not printable", s, s[i])
		}
	}
	return Symbol{Table: s[0], Code: s[1]}, nil
}

func (s Symbol) String() string {
	return string([]byte{s.Table, s.Code})
}

// Report is a positioned, timestamped weather report.
type Report struct {
	Time     time.Time
	Position Position
	Symbol   Symbol
	Weather  Weather
	Comment  string
}

// Timestamp renders t as the APRS "/ddHHMMz" UTC token.
func Timestamp(t time.Time) string {
	return "/" + t.UTC().Format("021504") + "z"
}

// String renders the information field:
// /ddHHMMz lat table lon code weather-fields comment.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString(Timestamp(r.Time))
	b.WriteString(r.Position.Lat)
	b.WriteByte(r.Symbol.Table)
	b.WriteString(r.Position.Lon)
	b.WriteByte(r.Symbol.Code)
	b.WriteString(WeatherFields(r.Weather, r.Comment))
	return b.String()
}
