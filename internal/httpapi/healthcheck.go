package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"
)

type healthchecker struct {
	db *sql.DB
}

func (h *healthchecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB) {
	h := &healthchecker{db: db}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
