package beacon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"cloudpico-aprs/internal/observation"
	"cloudpico-aprs/internal/tnc"
)

// Transmitter delivers one KISS frame.
type Transmitter interface {
	Send(ctx context.Context, frame []byte) error
}

type Status string

const (
	StatusSkipped Status = "skipped"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Outcome is the result of one transmission attempt.
type Outcome struct {
	Status Status
	Time   time.Time
	Packet string
	Err    error
}

// Report is the JSON form of an Outcome.
type Report struct {
	Status Status    `json:"status"`
	Time   time.Time `json:"time"`
	Packet string    `json:"packet,omitempty"`
	Error  string    `json:"error,omitempty"`
}

func (o Outcome) Report() Report {
	r := Report{Status: o.Status, Time: o.Time.UTC(), Packet: o.Packet}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

// TransmitterState is the interval gate. LastTransmit is the timestamp of
// the event that last passed the gate.
type TransmitterState struct {
	LastTransmit time.Time
	Interval     time.Duration
}

// Due reports whether an event at t passes the gate.
func (s TransmitterState) Due(t time.Time) bool {
	return s.LastTransmit.IsZero() || t.Sub(s.LastTransmit) >= s.Interval
}

type Options struct {
	Interval time.Duration
	// DaylightSavingAware steps rain windows back in local wall-clock time.
	DaylightSavingAware bool
	// Location is the local zone for day boundaries. Defaults to time.Local.
	Location *time.Location
	// KISSEscape applies KISS byte stuffing to outgoing frames.
	KISSEscape bool
	// DumpPath, when set, receives the text of every packet before it is sent.
	DumpPath string
}

// Scheduler gates observation events by interval and transmits a beacon for
// each event that passes. Events are handled one at a time.
type Scheduler struct {
	station Station
	tx      Transmitter
	snap    snapshotter
	opts    Options
	logger  *slog.Logger

	// mu serializes events. lastMu guards what readers see: state writes
	// happen under both.
	mu      sync.Mutex
	lastMu  sync.RWMutex
	state   TransmitterState
	last    Outcome
	hasLast bool
}

func NewScheduler(station Station, rain RainStore, tx Transmitter, opts Options, logger *slog.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Scheduler{
		station: station,
		tx:      tx,
		snap: snapshotter{
			rain: rain,
			win:  windows{loc: opts.Location, wallClock: opts.DaylightSavingAware},
		},
		opts:   opts,
		logger: logger,
		state:  TransmitterState{Interval: opts.Interval},
	}
}

// HandleObservation runs one event through the gate. It returns false when
// the event arrived within the interval and was dropped. Otherwise the
// last transmit time moves to the event's timestamp before anything is
// sent, so a failed attempt is not retried before the next interval.
func (s *Scheduler) HandleObservation(ctx context.Context, rec observation.Record) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := rec.Time()
	if !s.state.Due(t) {
		s.logger.Debug("beacon not due",
			"event_time", t.Unix(),
			"last_transmit", s.state.LastTransmit.Unix(),
			"interval", s.state.Interval,
		)
		return Outcome{}, false
	}
	s.lastMu.Lock()
	s.state.LastTransmit = t
	s.lastMu.Unlock()

	out := s.transmit(ctx, rec)
	s.logOutcome(out)

	s.lastMu.Lock()
	s.last, s.hasLast = out, true
	s.lastMu.Unlock()
	return out, true
}

func (s *Scheduler) transmit(ctx context.Context, rec observation.Record) Outcome {
	out := Outcome{Time: rec.Time()}

	if err := s.station.Validate(); err != nil {
		out.Status, out.Err = StatusSkipped, err
		return out
	}

	snap, err := s.snap.build(ctx, rec)
	if err != nil {
		out.Status, out.Err = StatusFailed, err
		return out
	}

	text, frame, err := s.station.Encode(snap, s.opts.KISSEscape)
	out.Packet = text
	if err != nil {
		out.Status, out.Err = StatusFailed, err
		return out
	}

	s.dump(text)

	if err := s.tx.Send(ctx, frame); err != nil {
		out.Status, out.Err = StatusFailed, err
		return out
	}
	out.Status = StatusSent
	return out
}

func (s *Scheduler) dump(text string) {
	if s.opts.DumpPath == "" {
		return
	}
	if err := os.WriteFile(s.opts.DumpPath, []byte(text+"\n"), 0o644); err != nil {
		s.logger.Warn("write packet dump", "path", s.opts.DumpPath, "error", err)
	}
}

func (s *Scheduler) logOutcome(out Outcome) {
	attrs := []any{"event_time", out.Time.Unix(), "status", out.Status}
	if out.Packet != "" {
		attrs = append(attrs, "packet", out.Packet)
	}

	var (
		dataErr      *DataAccessError
		transportErr *tnc.TransportError
	)
	switch {
	case out.Err == nil:
		s.logger.Info("beacon sent", attrs...)
	case errors.Is(out.Err, ErrNoCallsign), errors.Is(out.Err, ErrPlaceholderCallsign):
		s.logger.Warn("beacon skipped, set APRS_CALLSIGN", append(attrs, "error", out.Err)...)
	case errors.As(out.Err, &dataErr):
		s.logger.Error("beacon aborted, rain query failed",
			append(attrs, "window", dataErr.Window, "start", dataErr.Start.Unix(), "stop", dataErr.Stop.Unix(), "error", dataErr.Err)...)
	case errors.As(out.Err, &transportErr):
		s.logger.Warn("beacon dropped, tnc unreachable",
			append(attrs, "op", transportErr.Op, "addr", transportErr.Addr, "error", transportErr.Err)...)
	default:
		s.logger.Error("beacon failed", append(attrs, "error", out.Err)...)
	}
}

// Last returns the most recent attempt, if any.
func (s *Scheduler) Last() (Outcome, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last, s.hasLast
}

// State returns a copy of the interval gate.
func (s *Scheduler) State() TransmitterState {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.state
}
