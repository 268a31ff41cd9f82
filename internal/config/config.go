package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	DBLogSQL              bool

	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	APRS APRS
	TNC  TNC

	ArchiveRetention     time.Duration
	ArchivePruneSchedule string
}

// APRS holds the station identity and report settings. Callsign, path and
// symbol are validated when the station is built, not here.
type APRS struct {
	Callsign    string
	SSID        int
	Destination string
	Path        string

	// Lat and Lon are pre-formatted APRS position overrides.
	Lat string
	Lon string
	// StationLatitude and StationLongitude are decimal degrees, used when
	// Lat or Lon is empty.
	StationLatitude  float64
	StationLongitude float64

	Symbol  string
	Comment string

	Binding             string
	Interval            time.Duration
	DaylightSavingAware bool
	PacketDumpPath      string
}

type TNC struct {
	Addr       string
	Timeout    time.Duration
	KISSEscape bool
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:   appEnv,
		LogLevel: level,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		SQLiteDriver: envOr("SQLITE_DRIVER", "sqlite3"),
		SQLiteDSN:    strings.TrimSpace(os.Getenv("SQLITE_DSN")),
		SQLitePath:   envOr("SQLITE_PATH", "data/aprs.db"),

		MQTTBroker:      envOr("MQTT_BROKER", "localhost"),
		MQTTClientID:    envOr("MQTT_CLIENT_ID", "cloudpico-aprs-"+uuid.NewString()[:8]),
		MQTTTopicPrefix: strings.TrimSuffix(envOr("MQTT_TOPIC_PREFIX", "weather"), "/"),

		ArchivePruneSchedule: envOr("ARCHIVE_PRUNE_SCHEDULE", "@hourly"),
	}

	if cfg.SQLiteMaxOpenConns, err = envInt("SQLITE_MAX_OPEN_CONNS", "1"); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteMaxIdleConns, err = envInt("SQLITE_MAX_IDLE_CONNS", "1"); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteConnMaxLifetime, err = envDuration("SQLITE_CONN_MAX_LIFETIME", "0s"); err != nil {
		return Config{}, err
	}
	if cfg.DBLogSQL, err = envBool("DB_LOG_SQL", "false"); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort, err = envInt("MQTT_PORT", "1883"); err != nil {
		return Config{}, err
	}

	if cfg.APRS, err = loadAPRS(); err != nil {
		return Config{}, err
	}
	if cfg.TNC, err = loadTNC(); err != nil {
		return Config{}, err
	}

	if cfg.ArchiveRetention, err = envDuration("ARCHIVE_RETENTION", "48h"); err != nil {
		return Config{}, err
	}
	// The 24h rain window must stay answerable.
	if cfg.ArchiveRetention < 25*time.Hour {
		return Config{}, fmt.Errorf("ARCHIVE_RETENTION must be at least 25h, got %v", cfg.ArchiveRetention)
	}

	return cfg, nil
}

func loadAPRS() (APRS, error) {
	a := APRS{
		Callsign:    envOr("APRS_CALLSIGN", "N0CALL"),
		Destination: envOr("APRS_DESTINATION", "APLOX1"),
		Path:        envOr("APRS_PATH", "WIDE1-1,WIDE2-1"),
		Lat:         strings.TrimSpace(os.Getenv("APRS_LAT")),
		Lon:         strings.TrimSpace(os.Getenv("APRS_LON")),
		Symbol:      envOr("APRS_SYMBOL", "/_"),
		Comment:     os.Getenv("APRS_COMMENT"),
		Binding:     strings.ToLower(envOr("APRS_BINDING", "loop")),

		PacketDumpPath: strings.TrimSpace(os.Getenv("APRS_PACKET_DUMP_PATH")),
	}

	var err error
	if a.SSID, err = envInt("APRS_SSID", "13"); err != nil {
		return APRS{}, err
	}
	if a.StationLatitude, err = envFloat("STATION_LATITUDE", "0"); err != nil {
		return APRS{}, err
	}
	if a.StationLongitude, err = envFloat("STATION_LONGITUDE", "0"); err != nil {
		return APRS{}, err
	}
	if a.StationLatitude < -90 || a.StationLatitude > 90 {
		return APRS{}, fmt.Errorf("STATION_LATITUDE out of range: %v", a.StationLatitude)
	}
	if a.StationLongitude < -180 || a.StationLongitude > 180 {
		return APRS{}, fmt.Errorf("STATION_LONGITUDE out of range: %v", a.StationLongitude)
	}

	switch a.Binding {
	case "loop", "archive":
	default:
		return APRS{}, fmt.Errorf("invalid APRS_BINDING %q (allowed: loop, archive)", a.Binding)
	}

	intervalStr := envOr("TX_INTERVAL", "300")
	a.Interval, err = parseInterval(intervalStr)
	if err != nil {
		return APRS{}, fmt.Errorf("invalid TX_INTERVAL %q: %w", intervalStr, err)
	}

	if a.DaylightSavingAware, err = envBool("APRS_DAYLIGHT_SAVING_AWARE", "false"); err != nil {
		return APRS{}, err
	}
	return a, nil
}

func loadTNC() (TNC, error) {
	t := TNC{Addr: envOr("TNC_ADDR", "127.0.0.1:8001")}

	host, portStr, err := net.SplitHostPort(t.Addr)
	if err != nil {
		return TNC{}, fmt.Errorf("invalid TNC_ADDR %q: %w", t.Addr, err)
	}
	if host == "" {
		return TNC{}, fmt.Errorf("invalid TNC_ADDR %q: missing host", t.Addr)
	}
	if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
		return TNC{}, fmt.Errorf("invalid TNC_ADDR %q: bad port %q", t.Addr, portStr)
	}

	if t.Timeout, err = envDuration("TNC_TIMEOUT", "10s"); err != nil {
		return TNC{}, err
	}
	if t.Timeout <= 0 {
		return TNC{}, fmt.Errorf("TNC_TIMEOUT must be positive, got %v", t.Timeout)
	}
	if t.KISSEscape, err = envBool("TNC_KISS_ESCAPE", "false"); err != nil {
		return TNC{}, err
	}
	return t, nil
}

// parseInterval accepts bare seconds ("300") or a Go duration ("5m").
func parseInterval(s string) (time.Duration, error) {
	var d time.Duration
	if secs, err := strconv.Atoi(s); err == nil {
		d = time.Duration(secs) * time.Second
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, err
		}
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envFloat(key, def string) (float64, error) {
	s := envOr(key, def)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func envBool(key, def string) (bool, error) {
	s := envOr(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
