package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"cloudpico-aprs/internal/archive"
	"cloudpico-aprs/internal/beacon"
)

const recentBeacons = 10

// BeaconState is the scheduler as seen by the status endpoint.
type BeaconState interface {
	Last() (beacon.Outcome, bool)
	State() beacon.TransmitterState
}

type BeaconLog interface {
	GetRecentBeacons(ctx context.Context, limit int) ([]archive.BeaconEntry, error)
}

type BrokerState interface {
	IsConnected() bool
}

// StatusSources is everything GET /status reports on. Broker may be nil.
type StatusSources struct {
	Station string
	Beacon  BeaconState
	Log     BeaconLog
	Broker  BrokerState
}

type statusResponse struct {
	Station       string                `json:"station"`
	Interval      string                `json:"interval"`
	LastTransmit  *time.Time            `json:"last_transmit,omitempty"`
	MQTTConnected bool                  `json:"mqtt_connected"`
	Last          *beacon.Report        `json:"last,omitempty"`
	Recent        []archive.BeaconEntry `json:"recent"`
}

type statusHandler struct {
	src StatusSources
}

func (h *statusHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := h.src.Beacon.State()
	resp := statusResponse{
		Station:  h.src.Station,
		Interval: state.Interval.String(),
		Recent:   []archive.BeaconEntry{},
	}
	if !state.LastTransmit.IsZero() {
		t := state.LastTransmit.UTC()
		resp.LastTransmit = &t
	}
	if h.src.Broker != nil {
		resp.MQTTConnected = h.src.Broker.IsConnected()
	}
	if out, ok := h.src.Beacon.Last(); ok {
		rep := out.Report()
		resp.Last = &rep
	}

	recent, err := h.src.Log.GetRecentBeacons(r.Context(), recentBeacons)
	if err != nil {
		slog.Error("failed to load beacon log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load beacon log")
		return
	}
	if recent != nil {
		resp.Recent = recent
	}
	writeJSON(w, http.StatusOK, resp)
}

func registerStatus(mux *http.ServeMux, src StatusSources) {
	h := &statusHandler{src: src}
	mux.HandleFunc("GET /status", h.handleStatus)
}
