// Package beacon turns station observations into APRS weather beacons and
// hands them to a TNC at most once per interval.
package beacon

import (
	"errors"
	"fmt"
	"strings"

	"cloudpico-aprs/internal/aprs"
	"cloudpico-aprs/internal/ax25"
	"cloudpico-aprs/internal/config"
	"cloudpico-aprs/internal/kiss"
)

// PlaceholderCallsign is the callsign shipped in default configuration.
const PlaceholderCallsign = "N0CALL"

var (
	ErrNoCallsign          = errors.New("callsign not configured")
	ErrPlaceholderCallsign = errors.New("callsign is the N0CALL placeholder")
)

// Station is the transmitting identity and the fixed parts of its report.
type Station struct {
	Source      ax25.Address
	Destination ax25.Address
	Path        []ax25.Address

	Position aprs.Position
	Symbol   aprs.Symbol
	Comment  string
}

// NewStation parses the APRS settings. Malformed callsigns, paths, symbols
// or positions are returned as errors; an empty callsign is not, since
// Validate reports it per beacon.
func NewStation(cfg config.APRS) (Station, error) {
	var (
		st  Station
		err error
	)

	if strings.TrimSpace(cfg.Callsign) != "" {
		if st.Source, err = ax25.NewAddress(cfg.Callsign, cfg.SSID); err != nil {
			return Station{}, fmt.Errorf("APRS_CALLSIGN: %w", err)
		}
	}
	if st.Destination, err = ax25.ParseAddress(cfg.Destination); err != nil {
		return Station{}, fmt.Errorf("APRS_DESTINATION: %w", err)
	}
	if st.Path, err = ax25.ParsePath(cfg.Path); err != nil {
		return Station{}, fmt.Errorf("APRS_PATH: %w", err)
	}
	if st.Symbol, err = aprs.ParseSymbol(cfg.Symbol); err != nil {
		return Station{}, fmt.Errorf("APRS_SYMBOL: %w", err)
	}

	st.Position = aprs.NewPosition(cfg.StationLatitude, cfg.StationLongitude)
	if cfg.Lat != "" {
		if len(cfg.Lat) != 8 {
			return Station{}, fmt.Errorf("APRS_LAT %q: want ddmm.hhN (8 characters)", cfg.Lat)
		}
		st.Position.Lat = cfg.Lat
	}
	if cfg.Lon != "" {
		if len(cfg.Lon) != 9 {
			return Station{}, fmt.Errorf("APRS_LON %q: want dddmm.hhE (9 characters)", cfg.Lon)
		}
		st.Position.Lon = cfg.Lon
	}

	st.Comment = cfg.Comment
	return st, nil
}

// Validate reports whether the station may transmit.
func (s Station) Validate() error {
	switch s.Source.Callsign {
	case "":
		return ErrNoCallsign
	case PlaceholderCallsign:
		return ErrPlaceholderCallsign
	}
	return nil
}

// PathString renders the digipeater path as "WIDE1-1,WIDE2-1".
func (s Station) PathString() string {
	parts := make([]string, len(s.Path))
	for i, a := range s.Path {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

// Encode renders the report for snap and wraps it in an AX.25 UI frame
// inside a KISS frame. escape applies KISS byte stuffing to the frame body.
func (s Station) Encode(snap Snapshot, escape bool) (string, []byte, error) {
	text := aprs.Report{
		Time:     snap.Time,
		Position: s.Position,
		Symbol:   s.Symbol,
		Weather:  snap.Weather,
		Comment:  s.Comment,
	}.String()

	frame, err := ax25.BuildUIFrame(s.Destination, s.Source, s.Path, []byte(text))
	if err != nil {
		return text, nil, fmt.Errorf("build frame: %w", err)
	}
	if escape {
		frame = kiss.Escape(frame)
	}
	return text, kiss.Frame(frame), nil
}
