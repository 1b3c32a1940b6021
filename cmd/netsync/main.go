// NetSync - protection-aware device component reconciliation.
//
// This is the main entry point for the NetSync service. NetSync keeps
// device components (interfaces, power ports, console ports, device bays)
// aligned with their device-type templates: missing components are
// created, stale ones removed, and anything cabled or configured is left
// alone unless forced.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/netsyncd/netsync-core/migrations"

	"github.com/netsyncd/netsync-core/internal/api"
	"github.com/netsyncd/netsync-core/internal/audit"
	"github.com/netsyncd/netsync-core/internal/importer"
	"github.com/netsyncd/netsync-core/internal/infrastructure/config"
	"github.com/netsyncd/netsync-core/internal/infrastructure/database"
	"github.com/netsyncd/netsync-core/internal/infrastructure/influxdb"
	"github.com/netsyncd/netsync-core/internal/infrastructure/logging"
	"github.com/netsyncd/netsync-core/internal/infrastructure/mqtt"
	"github.com/netsyncd/netsync-core/internal/inventory"
	"github.com/netsyncd/netsync-core/internal/sync"
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

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting NetSync",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	devices := inventory.NewSQLiteDeviceRepository(db.DB)
	deviceTypes := inventory.NewSQLiteDeviceTypeRepository(db.DB)
	templates := inventory.NewSQLiteComponentTemplateRepository(db.DB)
	components := inventory.NewSQLiteComponentRepository(db.DB)
	changes := audit.NewSQLiteRepository(db.DB)

	// Device-type definition import (optional, on startup)
	if cfg.Import.OnStart && cfg.Import.Path != "" {
		imp := importer.New(deviceTypes, templates, log)
		result, importErr := imp.Run(ctx, importer.Options{
			Path:     cfg.Import.Path,
			AllowAll: true,
			DryRun:   cfg.Import.DryRun,
		})
		if importErr != nil {
			return fmt.Errorf("importing device-type definitions: %w", importErr)
		}
		log.Info("device-type definitions imported",
			"files", len(result.Files),
			"created", result.Created,
			"updated", result.Updated,
			"templates", result.Templates,
			"errors", len(result.Errors),
		)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Reconciliation engine with run observers
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	observers := []sync.Observer{api.NewHubObserver(hub)}
	if mqttClient != nil {
		observers = append(observers, mqtt.NewEventPublisher(mqttClient, log))
	}
	if influxClient != nil {
		observers = append(observers, influxdb.NewRunRecorder(influxClient))
	}

	differ := sync.NewDiffer(templates, components, components)
	applier := sync.NewApplier(db, components, changes, log, cfg.Sync.BatchSize)
	orch := sync.NewOrchestrator(devices, differ, applier, log, observers...)

	// Start API server
	var server *api.Server
	if cfg.API.Enabled {
		server, err = api.New(api.Deps{
			Config:       cfg.API,
			WS:           cfg.WebSocket,
			Security:     cfg.Security,
			SyncDefaults: cfg.Sync,
			Logger:       log,
			Devices:      devices,
			DeviceTypes:  deviceTypes,
			Changes:      changes,
			Runner:       orch,
			ExternalHub:  hub,
			Version:      version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// Accept externally triggered runs over MQTT
	if mqttClient != nil {
		if subErr := subscribeRunTrigger(ctx, mqttClient, orch, cfg.Sync, log); subErr != nil {
			log.Warn("failed to subscribe to run trigger topic", "error", subErr)
		}
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Optional reconciliation run at startup
	if cfg.Sync.RunOnStart {
		report, runErr := orch.Run(ctx, runOptions(cfg.Sync, nil))
		if runErr != nil {
			return fmt.Errorf("startup reconciliation run: %w", runErr)
		}
		log.Info("startup reconciliation run complete",
			"run_id", report.RunID,
			"processed", report.Processed,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"added", report.TotalAdded,
			"removed", report.TotalRemoved,
			"protected", report.TotalProtected,
		)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("NetSync stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses NETSYNC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("NETSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// runTriggerRequest is the payload accepted on the MQTT run trigger topic.
type runTriggerRequest struct {
	Mode       string   `json:"mode,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Force      bool     `json:"force,omitempty"`
}

// subscribeRunTrigger lets external schedulers start runs by publishing
// to the trigger topic. The payload may override mode, categories, and
// force; everything else comes from config.
func subscribeRunTrigger(ctx context.Context, client *mqtt.Client, orch *sync.Orchestrator, syncCfg config.SyncConfig, log *logging.Logger) error {
	return client.Subscribe(mqtt.Topics{}.RunTrigger(), byte(1), func(_ string, payload []byte) error {
		var req runTriggerRequest
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("parsing run trigger payload: %w", err)
			}
		}

		report, err := orch.Run(ctx, runOptions(syncCfg, &req))
		if err != nil {
			if errors.Is(err, sync.ErrInvalidMode) {
				return fmt.Errorf("run trigger: %w", err)
			}
			return fmt.Errorf("triggered reconciliation run: %w", err)
		}
		log.Info("triggered reconciliation run complete",
			"run_id", report.RunID,
			"processed", report.Processed,
			"failed", report.Failed,
		)
		return nil
	})
}

// runOptions builds sync options from config, optionally overridden by a
// trigger request.
func runOptions(syncCfg config.SyncConfig, req *runTriggerRequest) sync.Options {
	mode, err := sync.ParseMode(syncCfg.Mode)
	if err != nil {
		mode = sync.ModeDiff
	}
	categories := syncCfg.Categories
	force := syncCfg.Force

	if req != nil {
		if req.Mode != "" {
			if m, parseErr := sync.ParseMode(req.Mode); parseErr == nil {
				mode = m
			}
		}
		if req.Categories != nil {
			categories = req.Categories
		}
		force = force || req.Force
	}

	return sync.Options{
		Mode:       mode,
		Categories: categories,
		Policy: sync.Policy{
			ProtectConnected:  syncCfg.ProtectConnected,
			ProtectConfigured: syncCfg.ProtectConfigured,
		},
		Force:      force,
		SoftBudget: syncCfg.SoftTimeLimit,
		HardBudget: syncCfg.HardTimeLimit,
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB are skipped when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
