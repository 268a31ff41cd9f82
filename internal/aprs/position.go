// Package aprs formats the information field of APRS weather reports.
package aprs

import (
	"fmt"
	"math"
)

// Position holds latitude and longitude already rendered in APRS
// ddmm.hhN / dddmm.hhE form.
type Position struct {
	Lat string
	Lon string
}

// NewPosition renders decimal degrees. See EncodeLatitude.
func NewPosition(lat, lon float64) Position {
	return Position{Lat: EncodeLatitude(lat), Lon: EncodeLongitude(lon)}
}

// EncodeLatitude renders decimal degrees as "ddmm.hhN" or "ddmm.hhS".
// Minutes and hundredths are truncated, not rounded.
func EncodeLatitude(deg float64) string {
	d, m, h := splitDegrees(deg)
	hemi := 'N'
	if deg < 0 {
		hemi = 'S'
	}
	return fmt.Sprintf("%02d%02d.%02d%c", d, m, h, hemi)
}

// EncodeLongitude renders decimal degrees as "dddmm.hhE" or "dddmm.hhW".
// Minutes and hundredths are truncated, not rounded.
func EncodeLongitude(deg float64) string {
	d, m, h := splitDegrees(deg)
	hemi := 'E'
	if deg < 0 {
		hemi = 'W'
	}
	return fmt.Sprintf("%03d%02d.%02d%c", d, m, h, hemi)
}

func splitDegrees(v float64) (deg, mins, hundredths int) {
	whole, frac := math.Modf(math.Abs(v))
	minutes, fracMinutes := math.Modf(frac * 60)
	return int(whole), int(minutes), int(fracMinutes * 100)
}
