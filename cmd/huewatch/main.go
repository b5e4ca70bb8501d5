// huewatch - Hue sensor dashboard core
//
// huewatch sits between a Philips Hue bridge and dashboard clients. It
// maintains a live composite view of every sensing device (motion,
// temperature, ambient light) by combining bulk CLIP v2 fetches with the
// bridge's server-sent event stream, and serves that view over REST,
// a newline-delimited event stream and WebSocket. Optionally it mirrors
// decoded events onto MQTT and serves long-range graphs from the legacy
// recorder database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huewatch/core/internal/api"
	"github.com/huewatch/core/internal/hue"
	"github.com/huewatch/core/internal/infrastructure/config"
	"github.com/huewatch/core/internal/infrastructure/database"
	"github.com/huewatch/core/internal/infrastructure/logging"
	"github.com/huewatch/core/internal/infrastructure/mqtt"
	"github.com/huewatch/core/internal/sensor"
	"github.com/huewatch/core/internal/stream"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting huewatch",
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

	// Bridge client and resilient gateway
	client := hue.NewClient(cfg.Hue, cfg.BridgeBaseURL())
	gateway := hue.NewGateway(client, cfg.Gateway)
	gateway.SetLogger(log)
	log.Info("bridge gateway initialised",
		"host", cfg.Hue.Host,
		"max_in_flight", cfg.Gateway.MaxInFlight,
		"max_retries", cfg.Gateway.MaxRetries,
	)

	// Sensor state store with event replay backfill
	cache := stream.NewEventCache(cfg.Cache.EventMaxAgeDuration())
	store := sensor.NewStore(gateway, cfg.Cache.SensorsTTLDuration(), cfg.Cache.HistoryWindowDuration())
	store.SetReplayer(cache)
	store.SetLogger(log)

	bus := stream.NewBus(cfg.Cache.BusBacklog)
	ingestor := stream.NewIngestor(gateway, cache, store, bus)
	ingestor.SetLogger(log)

	// Optional MQTT republisher
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		ingestor.SetPublisher(&mqttRepublisher{client: mqttClient})

		// A broker mirror is only useful while the stream is flowing, so
		// don't wait for the first dashboard request.
		ingestor.Start(ctx)
		log.Info("event ingestion started for MQTT mirror")
	} else {
		log.Info("MQTT disabled")
	}

	// Optional legacy recorder database for long-range graphs
	var graphs *sensor.GraphReader
	var db *database.DB
	if cfg.History.Enabled {
		db, err = database.Open(database.Config{
			Path:        cfg.History.Path,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening recorder database: %w", err)
		}
		defer func() {
			log.Info("closing recorder database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing recorder database", "error", closeErr)
			}
		}()
		graphs = sensor.NewGraphReader(db.DB)
		log.Info("recorder database connected", "path", cfg.History.Path)
	} else {
		log.Info("recorder database disabled, graph endpoints unavailable")
	}

	// API server
	server, err := api.New(api.Deps{
		Config:          cfg.API,
		WS:              cfg.WebSocket,
		Logger:          log,
		Store:           store,
		Names:           gateway,
		Cache:           cache,
		Bus:             bus,
		Ingestor:        ingestor,
		Graphs:          graphs,
		Version:         version,
		SparklineWindow: cfg.Cache.SparklineWindowDuration(),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	if err := healthCheck(ctx, server, mqttClient, db); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Recorder database (if enabled)
	// 3. MQTT (if enabled)

	log.Info("huewatch stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HUEWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HUEWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all configured components are healthy.
func healthCheck(ctx context.Context, server *api.Server, mqttClient *mqtt.Client, db *database.DB) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if db != nil {
		if err := db.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("recorder database: %w", err)
		}
	}
	return nil
}

// mqttRepublisher mirrors decoded sensor events as retained MQTT state.
type mqttRepublisher struct {
	client *mqtt.Client
}

// statePayload is the wire shape of one mirrored sensor reading.
type statePayload struct {
	ResourceID string    `json:"resource_id"`
	Owner      string    `json:"owner,omitempty"`
	Enabled    bool      `json:"enabled"`
	Changed    time.Time `json:"changed"`
	Value      any       `json:"value"`
}

// PublishEvent publishes one decoded event to its retained state topic.
// Unparsed events are not mirrored; they carry no reading.
func (p *mqttRepublisher) PublishEvent(ev hue.Event) error {
	var kind string
	var payload statePayload

	switch e := ev.(type) {
	case hue.MotionEvent:
		kind = "motion"
		payload = statePayload{
			ResourceID: e.ID,
			Owner:      e.Owner,
			Enabled:    e.Enabled,
			Changed:    e.Changed,
			Value:      e.Presence,
		}
	case hue.TemperatureEvent:
		kind = "temperature"
		payload = statePayload{
			ResourceID: e.ID,
			Owner:      e.Owner,
			Enabled:    e.Enabled,
			Changed:    e.Changed,
			Value:      e.Temperature,
		}
	case hue.LightLevelEvent:
		kind = "light_level"
		payload = statePayload{
			ResourceID: e.ID,
			Owner:      e.Owner,
			Enabled:    e.Enabled,
			Changed:    e.Changed,
			Value:      e.Level,
		}
	default:
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling state payload: %w", err)
	}

	topic := mqtt.Topics{}.SensorState(kind, payload.ResourceID)
	return p.client.PublishRetained(topic, data)
}
