package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cloudpico-aprs/internal/archive"
	"cloudpico-aprs/internal/beacon"
	"cloudpico-aprs/internal/config"
	"cloudpico-aprs/internal/db"
	"cloudpico-aprs/internal/httpapi"
	"cloudpico-aprs/internal/migrate"
	"cloudpico-aprs/internal/mqtt"
	"cloudpico-aprs/internal/observation"
	"cloudpico-aprs/internal/tnc"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	station, err := beacon.NewStation(cfg.APRS)
	if err != nil {
		return err
	}
	binding, err := observation.ParseKind(cfg.APRS.Binding)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqlitePath", cfg.SQLitePath,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
		"archiveRetention", cfg.ArchiveRetention,
	)
	logger.Info("aprs station",
		"callsign", station.Source.String(),
		"destination", station.Destination.String(),
		"path", station.PathString(),
		"lat", station.Position.Lat,
		"lon", station.Position.Lon,
		"symbol", station.Symbol.String(),
		"comment", station.Comment,
		"binding", binding,
		"interval", cfg.APRS.Interval,
		"dstAware", cfg.APRS.DaylightSavingAware,
	)
	logger.Info("tnc", "addr", cfg.TNC.Addr, "timeout", cfg.TNC.Timeout, "kissEscape", cfg.TNC.KISSEscape)
	if err := station.Validate(); err != nil {
		logger.Warn("beacons will be skipped until APRS_CALLSIGN is set", "error", err)
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}
	logger.Info("database ready")

	repo := archive.NewRepository(dbConn)
	pruner, err := archive.NewPruner(repo, cfg.ArchiveRetention, cfg.ArchivePruneSchedule, logger)
	if err != nil {
		return err
	}
	pruner.Start()
	defer pruner.Stop()

	scheduler := beacon.NewScheduler(station, repo, tnc.NewSession(cfg.TNC.Addr, cfg.TNC.Timeout), beacon.Options{
		Interval:            cfg.APRS.Interval,
		DaylightSavingAware: cfg.APRS.DaylightSavingAware,
		KISSEscape:          cfg.TNC.KISSEscape,
		DumpPath:            cfg.APRS.PacketDumpPath,
	}, logger)

	mqttClient, err := mqtt.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	handler := &recordHandler{
		binding:   binding,
		repo:      repo,
		scheduler: scheduler,
		publisher: mqttClient,
		logger:    logger,
	}
	// Set before Connect: the broker may deliver right after CONNACK.
	mqttClient.SetHandler(func(kind observation.Kind, rec observation.Record) error {
		return handler.handle(ctx, kind, rec)
	})

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = mqttClient.Connect(connectCtx)
	connectCancel()
	if err != nil {
		logger.Warn("mqtt connection failed (continuing, client keeps retrying)", "error", err)
	}
	defer mqttClient.Disconnect()

	mux := httpapi.NewMux(dbConn, httpapi.StatusSources{
		Station: station.Source.String(),
		Beacon:  scheduler,
		Log:     repo,
		Broker:  mqttClient,
	})
	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
