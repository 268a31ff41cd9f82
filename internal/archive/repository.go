// Package archive stores station archive records and answers rain
// accumulation queries over them.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"cloudpico-aprs/internal/observation"
)

//go:embed sql/insert-record.sql
var insertRecordSQL string

//go:embed sql/sum-rain.sql
var sumRainSQL string

//go:embed sql/prune-records.sql
var pruneRecordsSQL string

//go:embed sql/insert-beacon.sql
var insertBeaconSQL string

//go:embed sql/get-recent-beacons.sql
var getRecentBeaconsSQL string

//go:embed sql/prune-beacons.sql
var pruneBeaconsSQL string

// BeaconEntry is one transmission attempt as kept in the beacon log.
type BeaconEntry struct {
	Time   time.Time `json:"time"`
	Status string    `json:"status"`
	Packet string    `json:"packet,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type Repository interface {
	InsertRecord(ctx context.Context, rec observation.Record) error
	// SumRain sums archived rain over (start, stop]. It returns nil when no
	// record in the window carries a rain value.
	SumRain(ctx context.Context, start, stop time.Time) (*float64, error)
	InsertBeacon(ctx context.Context, e BeaconEntry) error
	GetRecentBeacons(ctx context.Context, limit int) ([]BeaconEntry, error)
	// PruneBefore deletes records and beacon log entries older than before.
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertRecord(ctx context.Context, rec observation.Record) error {
	_, err := r.db.ExecContext(ctx, insertRecordSQL,
		rec.DateTime,
		int(rec.Units),
		nullable(rec, observation.FieldInterval),
		nullable(rec, observation.FieldWindDir),
		nullable(rec, observation.FieldWindSpeed),
		nullable(rec, observation.FieldWindGust),
		nullable(rec, observation.FieldOutTemp),
		nullable(rec, observation.FieldOutHumidity),
		nullable(rec, observation.FieldBarometer),
		nullable(rec, observation.FieldRain),
	)
	if err != nil {
		return fmt.Errorf("insert record %d: %w", rec.DateTime, err)
	}
	return nil
}

func (r *repositoryImpl) SumRain(ctx context.Context, start, stop time.Time) (*float64, error) {
	var sum sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, sumRainSQL, start.Unix(), stop.Unix()).Scan(&sum); err != nil {
		return nil, fmt.Errorf("sum rain (%d, %d]: %w", start.Unix(), stop.Unix(), err)
	}
	if !sum.Valid {
		return nil, nil
	}
	return &sum.Float64, nil
}

func (r *repositoryImpl) InsertBeacon(ctx context.Context, e BeaconEntry) error {
	_, err := r.db.ExecContext(ctx, insertBeaconSQL, e.Time.Unix(), e.Status, nullString(e.Packet), nullString(e.Error))
	if err != nil {
		return fmt.Errorf("insert beacon: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetRecentBeacons(ctx context.Context, limit int) ([]BeaconEntry, error) {
	rows, err := r.db.QueryContext(ctx, getRecentBeaconsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close beacon rows", "error", err)
		}
	}()

	var out []BeaconEntry
	for rows.Next() {
		var (
			e      BeaconEntry
			ts     int64
			packet sql.NullString
			errStr sql.NullString
		)
		if err := rows.Scan(&ts, &e.Status, &packet, &errStr); err != nil {
			return nil, err
		}
		e.Time = time.Unix(ts, 0).UTC()
		e.Packet = packet.String
		e.Error = errStr.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, pruneRecordsSQL, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx, pruneBeaconsSQL, before.Unix()); err != nil {
		return n, fmt.Errorf("prune beacons: %w", err)
	}
	return n, nil
}

func nullable(rec observation.Record, field string) any {
	if v, ok := rec.Lookup(field); ok {
		return v
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
