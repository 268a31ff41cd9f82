package aprs

import (
	"testing"
	"time"
)

func TestEncodePosition(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantLat string
		wantLon string
	}{
		{name: "north east", lat: 52.1234, lon: 21.5678, wantLat: "5207.40N", wantLon: "02134.06E"},
		{name: "south west", lat: -33.8568, lon: -151.2153, wantLat: "3351.40S", wantLon: "15112.91W"},
		{name: "equator and meridian", lat: 0, lon: 0, wantLat: "0000.00N", wantLon: "00000.00E"},
		{name: "half degree", lat: 0.5, lon: -0.5, wantLat: "0030.00N", wantLon: "00030.00W"},
		{name: "truncates", lat: 49.999999, lon: 179.999999, wantLat: "4959.99N", wantLon: "17959.99E"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPosition(tt.lat, tt.lon)
			if p.Lat != tt.wantLat {
				t.Errorf("lat %v = %q, want %q", tt.lat, p.Lat, tt.wantLat)
			}
			if p.Lon != tt.wantLon {
				t.Errorf("lon %v = %q, want %q", tt.lon, p.Lon, tt.wantLon)
			}
			if len(p.Lat) != 8 || len(p.Lon) != 9 {
				t.Errorf("lengths = %d/%d, want 8/9", len(p.Lat), len(p.Lon))
			}
		})
	}
}

func TestEncodePosition_Deterministic(t *testing.T) {
	first := NewPosition(52.1234, 21.5678)
	for i := 0; i < 100; i++ {
		if got := NewPosition(52.1234, 21.5678); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestWeatherFields(t *testing.T) {
	tests := []struct {
		name    string
		w       Weather
		comment string
		want    string
	}{
		{
			name:    "typical",
			w:       Weather{WindDir: 90, WindSpeed: 10, WindGust: 15, OutTemp: 72, HourRain: 0.04, Rain24: 0.12, DayRain: 0.12, OutHumidity: 40, Barometer: 1013.2},
			comment: "Pico WX",
			want:    "090/010g015t072r004p012P012h40b10132 Pico WX",
		},
		{
			name: "zeros with empty comment",
			w:    Weather{},
			want: "000/000g000t000r000p000P000h00b00000 ",
		},
		{
			name: "truncates rather than rounds",
			w:    Weather{WindDir: 359.9, WindSpeed: 4.99, WindGust: 9.9, OutTemp: 71.9, HourRain: 0.29, Rain24: 0.57, DayRain: 0.999, OutHumidity: 45.9, Barometer: 29.999},
			want: "359/004g009t071r028p056P099h45b00299 ",
		},
		{
			name: "negative temperature",
			w:    Weather{OutTemp: -5.7, OutHumidity: 80, Barometer: 1020},
			want: "000/000g000t-05r000p000P000h80b10200 ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeatherFields(tt.w, tt.comment); got != tt.want {
				t.Errorf("WeatherFields() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeatherFields_Humidity(t *testing.T) {
	tests := []struct {
		humidity float64
		want     string
	}{
		{humidity: -5, want: "h00"},
		{humidity: 100, want: "h00"},
		{humidity: 150, want: "h00"},
		{humidity: 45, want: "h45"},
		{humidity: 99.9, want: "h99"},
		{humidity: 0, want: "h00"},
	}

	for _, tt := range tests {
		got := WeatherFields(Weather{OutHumidity: tt.humidity}, "")
		// h field follows "000/000g000t000r000p000P000"
		if field := got[27:30]; field != tt.want {
			t.Errorf("humidity %v: field = %q, want %q (in %q)", tt.humidity, field, tt.want, got)
		}
	}
}

func TestParseSymbol(t *testing.T) {
	s, err := ParseSymbol("/_")
	if err != nil {
		t.Fatalf("ParseSymbol: %v", err)
	}
	if s != WeatherStation {
		t.Errorf("ParseSymbol(/_) = %+v, want %+v", s, WeatherStation)
	}
	if s.String() != "/_" {
		t.Errorf("String() = %q", s.String())
	}

	for _, bad := range []string{"", "/", "/_x", "/ ", "\x00_"} {
		if _, err := ParseSymbol(bad); err == nil {
			t.Errorf("ParseSymbol(%q): want error", bad)
		}
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Unix(1700000000, 0) // 2023-11-14T22:13:20Z
	if got := Timestamp(ts); got != "/142213z" {
		t.Errorf("Timestamp = %q, want /142213z", got)
	}

	local := ts.In(time.FixedZone("CET", 3600))
	if got := Timestamp(local); got != "/142213z" {
		t.Errorf("Timestamp(local) = %q, want /142213z", got)
	}
}

func TestReport_String(t *testing.T) {
	r := Report{
		Time:     time.Unix(1700000000, 0),
		Position: NewPosition(52.1234, 21.5678),
		Symbol:   WeatherStation,
		Weather:  Weather{WindDir: 90, WindSpeed: 10, OutTemp: 72, OutHumidity: 40, Barometer: 1013},
		Comment:  "",
	}
	want := "/142213z5207.40N/02134.06E_090/010g000t072r000p000P000h40b10130 "
	if got := r.String(); got != want {
		t.Errorf("Report.String() =\n%q\nwant\n%q", got, want)
	}
}
