package httpapi

import (
	"database/sql"
	"net/http"

	"cloudpico-aprs/internal/config"
)

func NewMux(db *sql.DB, status StatusSources) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	registerStatus(mux, status)
	return mux
}

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: requestLogger(mux),
	}
}
