package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/nerrad567/webstone-core/migrations"

	"github.com/nerrad567/webstone-core/internal/api"
	"github.com/nerrad567/webstone-core/internal/bridges/hostlink"
	"github.com/nerrad567/webstone-core/internal/control"
	"github.com/nerrad567/webstone-core/internal/infrastructure/config"
	"github.com/nerrad567/webstone-core/internal/infrastructure/database"
	"github.com/nerrad567/webstone-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/webstone-core/internal/infrastructure/logging"
	"github.com/nerrad567/webstone-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/webstone-core/internal/loop"
	"github.com/nerrad567/webstone-core/internal/registry"
	"github.com/nerrad567/webstone-core/internal/snapshot"
)

// shutdownTimeout bounds the final snapshot save.
const shutdownTimeout = 10 * time.Second

// run starts every component and blocks until ctx is cancelled.
//
// Deferred shutdown runs in reverse: the server closes first so no session
// can mutate state, then the host link and MQTT, then the final snapshot
// save on the still-running loop, and only then does the loop stop.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting webstone",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", db.Path())

	// The directory is restored before the loop exists, so nothing races it.
	store := snapshot.NewSQLStore(db)
	dir := registry.NewDirectory()
	if err := snapshot.Load(ctx, store, dir); err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	log.Info("snapshot loaded", "registries", len(dir.Registries()))

	lp := loop.New(0)
	lp.SetLogger(log)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go lp.Run(loopCtx)
	defer func() {
		stopLoop()
		<-lp.Done()
		log.Info("execution loop stopped")
	}()

	hub := api.NewHub(cfg.WebSocket, log)
	svc := control.New(dir, hub)
	svc.SetLogger(log)

	saver := snapshot.NewSaver(lp, dir, store, cfg.SaveInterval())
	saver.SetLogger(log)
	saverCtx, stopSaver := context.WithCancel(context.Background())
	saverDone := make(chan struct{})
	go func() {
		defer close(saverDone)
		saver.Run(saverCtx)
	}()
	defer func() {
		stopSaver()
		<-saverDone
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if saved, flushErr := saver.Flush(flushCtx); flushErr != nil {
			log.Error("final snapshot save failed", "error", flushErr)
		} else if saved {
			log.Info("final snapshot saved")
		}
	}()

	deps := api.Deps{
		Server:    cfg.Server,
		WebSocket: cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Hub:       hub,
		Service:   svc,
		Loop:      lp,
		Version:   version,
		DB:        db,
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		svc.SetRecorder(influxClient)
		deps.InfluxDB = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

		bridge := hostlink.New(mqttClient, svc, lp, 0)
		bridge.SetLogger(log)
		svc.SetSink(bridge)
		if startErr := bridge.Start(ctx); startErr != nil {
			bridge.Stop()
			return fmt.Errorf("starting host link: %w", startErr)
		}
		defer bridge.Stop()
		deps.MQTT = mqttClient
		log.Info("MQTT host link started",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"prefix", mqttClient.Topics().Prefix(),
		)
	} else {
		log.Info("MQTT disabled, host commands are discarded")
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, srv); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal", "address", srv.Addr())

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		//nolint:errcheck // Already failing; the migration error is what matters
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies the components that must be up before serving.
// MQTT and InfluxDB are checked by their Connect calls.
func healthCheck(ctx context.Context, checks ...healthChecker) error {
	var errs []error
	for _, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
