// Greenhouse Controller - telemetry and actuator sync core
//
// This is the main entry point for the greenhouse controller. It keeps an
// authoritative view of the greenhouse in sync with the devices on the
// MQTT bus:
//   - Sensor readings are decoded, held in memory and recorded to history
//   - Pump and fan state follow device reports, with optimistic updates
//     for commands issued over the HTTP API
//   - Consumers watch changes over WebSocket
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/api"
	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
	"github.com/geeOnama940515/iot-garden/internal/history"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/database"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/historyapi"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/influxdb"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/logging"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/metrics"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/mqtt"
	"github.com/geeOnama940515/iot-garden/internal/reconciler"
	"github.com/geeOnama940515/iot-garden/internal/router"
	"github.com/geeOnama940515/iot-garden/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often the local history is trimmed to its retention.
const pruneInterval = time.Hour

// seedTimeout bounds the initial history load.
const seedTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It blocks until ctx is cancelled, then shuts components down in reverse
// order of startup.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting greenhouse controller",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version, "site", cfg.Site.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	reg := metrics.New()
	checks := make(map[string]api.HealthChecker)

	// History backend
	store, closeStore, err := openHistoryStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	historyOpts := []history.Option{
		history.WithLogger(log.Component("history")),
		history.WithMetrics(reg),
		history.WithTimeout(cfg.History.Timeout),
		history.WithQueueSize(cfg.History.QueueSize),
	}

	// InfluxDB mirror (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB, influxdb.WithSite(cfg.Site.ID))
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		historyOpts = append(historyOpts, history.WithMirror(influxClient))
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	adapter := history.NewAdapter(store, historyOpts...)
	if startErr := adapter.Start(ctx); startErr != nil {
		return fmt.Errorf("starting history adapter: %w", startErr)
	}
	defer func() {
		log.Info("stopping history adapter")
		adapter.Stop()
	}()

	// Topic routing
	table, err := router.FromConfig(cfg.Topics)
	if err != nil {
		return err
	}
	if coverErr := table.ValidateCoverage(cfg.MQTT.Subscriptions); coverErr != nil {
		log.Warn("some topics are outside every subscription", "error", coverErr)
	}
	rt, err := router.New(table)
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	commands, err := reconciler.NewCommands(cfg.Topics)
	if err != nil {
		return fmt.Errorf("building command table: %w", err)
	}

	// MQTT supervisor; cfg.MQTT.Subscriptions are registered by NewSupervisor
	supervisor := mqtt.NewSupervisor(cfg.MQTT,
		mqtt.WithLogger(log.Component("mqtt")),
		mqtt.WithMetrics(reg),
	)
	checks["mqtt"] = supervisor

	rec := reconciler.New(reconciler.Options{
		Router:       rt,
		Publisher:    supervisor,
		Sink:         adapter,
		Commands:     commands,
		Logger:       log.Component("reconciler"),
		Metrics:      reg,
		HistoryLimit: cfg.History.RecentLimit,
	})

	if cfg.History.LoadOnStart {
		seedHistory(ctx, adapter, rec, log)
	}

	// WebSocket hub, shared by the reconciler and the API server
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)
	if influxClient != nil {
		rec.SetBroadcaster(actuatorRecorder{hub: hub, influx: influxClient})
	} else {
		rec.SetBroadcaster(hub)
	}

	supervisor.SetMessageHandler(rec.HandleMessage)
	supervisor.AddStatusObserver(func(s mqtt.Status) {
		rec.SetConnectivity(greenhouse.Connectivity(s))
	})
	if startErr := supervisor.Start(); startErr != nil {
		return fmt.Errorf("starting MQTT supervisor: %w", startErr)
	}
	defer func() {
		log.Info("stopping MQTT supervisor")
		supervisor.Stop()
	}()
	log.Info("MQTT supervisor started",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", supervisor.ClientID(),
	)

	// HTTP API
	srv, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Controller: rec,
		Checks:     checks,
		Metrics:    reg.Handler(),
		Hub:        hub,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. MQTT supervisor
	// 3. History adapter (drains queued readings)
	// 4. InfluxDB (if enabled)
	// 5. History store

	log.Info("greenhouse controller stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GREENHOUSE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GREENHOUSE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openHistoryStore opens the configured history backend and registers its
// health check. The returned close function is always non-nil.
func openHistoryStore(ctx context.Context, cfg *config.Config, log *logging.Logger, checks map[string]api.HealthChecker) (history.Store, func(), error) {
	switch cfg.History.Backend {
	case config.HistoryBackendSQLite:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database connected", "path", db.Path())

		store := history.NewSQLiteStore(db.DB, cfg.History.RecentLimit)
		go store.PruneEvery(ctx, cfg.History.Retention, pruneInterval, log.Component("history"))
		checks["database"] = db

		return store, func() {
			log.Info("closing database")
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		}, nil

	default:
		client, err := historyapi.New(cfg.History)
		if err != nil {
			return nil, nil, fmt.Errorf("creating history client: %w", err)
		}
		log.Info("history service configured", "url", client.BaseURL())
		checks["history"] = client
		return restStore{client: client}, func() {}, nil
	}
}

// seedHistory loads recorded readings into the reconciler. Failures are
// logged; the controller starts with whatever was loaded.
func seedHistory(ctx context.Context, adapter *history.Adapter, rec *reconciler.Reconciler, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	readings, err := adapter.LoadHistory(ctx)
	if err != nil {
		log.Warn("loading history", "error", err, "loaded", len(readings))
	}
	rec.Seed(readings)
	log.Info("history loaded", "readings", len(readings))
}

// restStore adapts the history service client to history.Store.
type restStore struct {
	client *historyapi.Client
}

// Append implements history.Store.
func (s restStore) Append(ctx context.Context, r greenhouse.Reading) error {
	return s.client.AddReading(ctx, r)
}

// List implements history.Store.
func (s restStore) List(ctx context.Context) ([]greenhouse.Reading, error) {
	return s.client.ListReadings(ctx)
}

// actuatorRecorder forwards notifications to the hub and records actuator
// changes in InfluxDB.
type actuatorRecorder struct {
	hub    *api.Hub
	influx *influxdb.Client
}

// Broadcast implements reconciler.Broadcaster.
func (a actuatorRecorder) Broadcast(channel string, payload any) {
	a.hub.Broadcast(channel, payload)
	if state, ok := payload.(greenhouse.ActuatorState); ok && channel == reconciler.ChannelActuator {
		a.influx.WriteActuatorState(state, time.Now())
	}
}

// compile-time checks
var (
	_ history.Store          = restStore{}
	_ reconciler.Publisher   = (*mqtt.Supervisor)(nil)
	_ reconciler.Broadcaster = (*api.Hub)(nil)
	_ reconciler.Broadcaster = actuatorRecorder{}
	_ api.Controller         = (*reconciler.Reconciler)(nil)
)
