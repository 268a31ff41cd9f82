package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloudpico-aprs/internal/archive"
	"cloudpico-aprs/internal/beacon"
	"cloudpico-aprs/internal/observation"
)

type statusPublisher interface {
	PublishStatus(v any) error
}

type beaconScheduler interface {
	HandleObservation(ctx context.Context, rec observation.Record) (beacon.Outcome, bool)
}

// recordHandler stores archive records and drives the scheduler with
// records of the bound kind.
type recordHandler struct {
	binding   observation.Kind
	repo      archive.Repository
	scheduler beaconScheduler
	publisher statusPublisher
	logger    *slog.Logger
}

func (h *recordHandler) handle(ctx context.Context, kind observation.Kind, rec observation.Record) error {
	var errs []error

	// Stored first, so an archive-bound beacon counts its own rain.
	if kind == observation.KindArchive {
		if err := h.repo.InsertRecord(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}

	if kind != h.binding {
		return errors.Join(errs...)
	}

	out, ok := h.scheduler.HandleObservation(ctx, rec)
	if !ok {
		return errors.Join(errs...)
	}

	report := out.Report()
	entry := archive.BeaconEntry{
		Time:   report.Time,
		Status: string(report.Status),
		Packet: report.Packet,
		Error:  report.Error,
	}
	if err := h.repo.InsertBeacon(ctx, entry); err != nil {
		errs = append(errs, fmt.Errorf("log beacon: %w", err))
	}

	if h.publisher != nil {
		if err := h.publisher.PublishStatus(report); err != nil {
			h.logger.Warn("beacon status not published", "error", err)
		}
	}
	return errors.Join(errs...)
}
