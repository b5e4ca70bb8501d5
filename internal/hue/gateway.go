package hue

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/huewatch/core/internal/infrastructure/config"
)

// Logger defines the logging interface used by the Gateway.
// This allows different logging implementations to be used.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// retryBaseDelay scales the quadratic backoff: attempt n sleeps n*n times
// this value (100ms, 400ms, 900ms, 1600ms, 2500ms).
const retryBaseDelay = 100 * time.Millisecond

// Gateway wraps the Client with the two policies every request path shares:
//
//  1. Bounded outbound concurrency. At most MaxInFlight requests are in
//     flight system-wide, enforced by a counting permit. A multi-query
//     fan-out holds a single permit for the whole batch.
//  2. Bounded retry. Transient failures are retried up to MaxRetries times
//     with quadratic backoff; the permit is re-acquired per attempt so a
//     sleeping retry never starves other callers. After the budget is
//     exhausted the last error is returned.
//
// The permit is released on every exit path, including panics, so a
// misbehaving request can never leak capacity.
//
// All methods are safe for concurrent use from multiple goroutines.
type Gateway struct {
	client     *Client
	permits    chan struct{}
	maxRetries int
	logger     Logger

	// sleep is indirected for tests; it defaults to time.Sleep but honours
	// context cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway creates a Gateway over the given client.
func NewGateway(client *Client, cfg config.GatewayConfig) *Gateway {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Gateway{
		client:     client,
		permits:    make(chan struct{}, maxInFlight),
		maxRetries: cfg.MaxRetries,
		logger:     noopLogger{},
		sleep:      sleepContext,
	}
}

// SetLogger sets the logger used for retry and failure reporting.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// acquire takes one outbound permit, waiting if the limit is reached.
func (g *Gateway) acquire(ctx context.Context) error {
	select {
	case g.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release returns one outbound permit.
func (g *Gateway) release() {
	<-g.permits
}

// retry runs f under a permit, retrying transient failures with quadratic
// backoff. Each attempt acquires a fresh permit; release is unconditional
// via defer so neither an error nor a panic in f leaks capacity.
func (g *Gateway) retry(ctx context.Context, op string, f func(ctx context.Context) error) error {
	attempt := 0
	for {
		err := func() error {
			if acquireErr := g.acquire(ctx); acquireErr != nil {
				return acquireErr
			}
			defer g.release()
			return f(ctx)
		}()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt >= g.maxRetries {
			g.logger.Error("bridge request failed permanently",
				"op", op,
				"attempts", attempt+1,
				"error", err,
			)
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		attempt++
		delay := time.Duration(attempt*attempt) * retryBaseDelay
		g.logger.Warn("transient bridge error, retrying",
			"op", op,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Devices fetches all devices, with retry and concurrency gating.
func (g *Gateway) Devices(ctx context.Context) ([]Device, error) {
	return gatewayGet(ctx, g, "devices", g.client.GetDevices)
}

// Rooms fetches all rooms, with retry and concurrency gating.
func (g *Gateway) Rooms(ctx context.Context) ([]Room, error) {
	return gatewayGet(ctx, g, "rooms", g.client.GetRooms)
}

// Zones fetches all zones, with retry and concurrency gating.
func (g *Gateway) Zones(ctx context.Context) ([]Zone, error) {
	return gatewayGet(ctx, g, "zones", g.client.GetZones)
}

// Lights fetches all lights, with retry and concurrency gating.
func (g *Gateway) Lights(ctx context.Context) ([]Light, error) {
	return gatewayGet(ctx, g, "lights", g.client.GetLights)
}

// BridgeHomes fetches the bridge homes, with retry and concurrency gating.
func (g *Gateway) BridgeHomes(ctx context.Context) ([]BridgeHome, error) {
	return gatewayGet(ctx, g, "bridge_homes", g.client.GetBridgeHomes)
}

// MotionSensors fetches all motion services, with retry and concurrency gating.
func (g *Gateway) MotionSensors(ctx context.Context) ([]MotionResource, error) {
	return gatewayGet(ctx, g, "motion", g.client.GetMotionSensors)
}

// Temperatures fetches all temperature services, with retry and concurrency gating.
func (g *Gateway) Temperatures(ctx context.Context) ([]TemperatureResource, error) {
	return gatewayGet(ctx, g, "temperature", g.client.GetTemperatures)
}

// LightLevels fetches all light level services, with retry and concurrency gating.
func (g *Gateway) LightLevels(ctx context.Context) ([]LightLevelResource, error) {
	return gatewayGet(ctx, g, "light_level", g.client.GetLightLevels)
}

// FetchSensorData runs the four sensor queries concurrently under a single
// retry decision: either all four succeed within one attempt, or the whole
// batch is retried, so the joined result is mutually consistent as of one
// attempt.
func (g *Gateway) FetchSensorData(ctx context.Context) (*SensorData, error) {
	var data SensorData
	err := g.retry(ctx, "sensors", func(ctx context.Context) error {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			var err error
			data.Motions, err = g.client.GetMotionSensors(egCtx)
			return err
		})
		eg.Go(func() error {
			var err error
			data.Temperatures, err = g.client.GetTemperatures(egCtx)
			return err
		})
		eg.Go(func() error {
			var err error
			data.LightLevels, err = g.client.GetLightLevels(egCtx)
			return err
		})
		eg.Go(func() error {
			var err error
			data.Devices, err = g.client.GetDevices(egCtx)
			return err
		})
		return eg.Wait()
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// NameMap builds a mapping from any known resource id to a human-readable
// display name. Devices, rooms and zones also map each of their sub-service
// rids to the parent's name, so capability ids resolve to the device name.
// Bridge homes are labelled "Bridge Home".
func (g *Gateway) NameMap(ctx context.Context) (map[string]string, error) {
	var data NameData
	err := g.retry(ctx, "names", func(ctx context.Context) error {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			var err error
			data.Devices, err = g.client.GetDevices(egCtx)
			return err
		})
		eg.Go(func() error {
			var err error
			data.Rooms, err = g.client.GetRooms(egCtx)
			return err
		})
		eg.Go(func() error {
			var err error
			data.Zones, err = g.client.GetZones(egCtx)
			return err
		})
		eg.Go(func() error {
			var err error
			data.Lights, err = g.client.GetLights(egCtx)
			return err
		})
		eg.Go(func() error {
			var err error
			data.BridgeHomes, err = g.client.GetBridgeHomes(egCtx)
			return err
		})
		return eg.Wait()
	})
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	for _, d := range data.Devices {
		if d.Metadata != nil {
			insertResourceNames(names, d.ID, d.Metadata.Name, d.Services)
		}
	}
	for _, r := range data.Rooms {
		if r.Metadata != nil {
			insertResourceNames(names, r.ID, r.Metadata.Name, r.Services)
		}
	}
	for _, z := range data.Zones {
		if z.Metadata != nil {
			insertResourceNames(names, z.ID, z.Metadata.Name, z.Services)
		}
	}
	for _, h := range data.BridgeHomes {
		insertResourceNames(names, h.ID, "Bridge Home", h.Services)
	}
	for _, l := range data.Lights {
		if l.Metadata != nil && l.Metadata.Name != "" {
			names[l.ID] = l.Metadata.Name
		}
	}

	return names, nil
}

// OpenEventStream opens the upstream event stream.
// Streaming bypasses the permit: ingestion must never contend with request
// traffic, and a held stream is not an in-flight request.
func (g *Gateway) OpenEventStream(ctx context.Context) (io.ReadCloser, error) {
	return g.client.OpenEventStream(ctx)
}

// insertResourceNames records a resource's name under its own id and under
// every sub-service rid.
func insertResourceNames(names map[string]string, id, name string, services []ResourceIdentifier) {
	if id == "" || name == "" {
		return
	}
	names[id] = name
	for _, svc := range services {
		if svc.RID != "" {
			names[svc.RID] = name
		}
	}
}

// gatewayGet wraps one collection fetch with the retry/permit policy.
func gatewayGet[T any](ctx context.Context, g *Gateway, op string, fetch func(ctx context.Context) ([]T, error)) ([]T, error) {
	var out []T
	err := g.retry(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = fetch(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
