package hue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/huewatch/core/internal/infrastructure/config"
)

// applicationKeyHeader is the credential header for CLIP v2 requests.
const applicationKeyHeader = "hue-application-key"

// Client performs raw HTTPS operations against a Hue bridge.
//
// It carries no retry or concurrency policy; callers go through the Gateway
// for that. The bridge serves a self-signed certificate, so certificate
// verification is typically disabled via config.
type Client struct {
	baseURL string
	appKey  string

	// httpClient is used for request/response calls and carries the
	// configured per-request timeout.
	httpClient *http.Client

	// streamClient has no timeout: the event stream stays open until the
	// bridge or the caller closes it.
	streamClient *http.Client
}

// NewClient creates a bridge client from configuration.
func NewClient(cfg config.HueConfig, baseURL string) *Client {
	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // Hue bridges serve self-signed certificates
	}

	return &Client{
		baseURL: baseURL,
		appKey:  cfg.ApplicationKey,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeoutDuration(),
		},
		streamClient: &http.Client{
			Transport: transport,
		},
	}
}

// GetDevices fetches all devices registered on the bridge.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	return getCollection[Device](ctx, c, "/clip/v2/resource/device")
}

// GetRooms fetches all room groupings.
func (c *Client) GetRooms(ctx context.Context) ([]Room, error) {
	return getCollection[Room](ctx, c, "/clip/v2/resource/room")
}

// GetZones fetches all zone groupings.
func (c *Client) GetZones(ctx context.Context) ([]Zone, error) {
	return getCollection[Zone](ctx, c, "/clip/v2/resource/zone")
}

// GetLights fetches all light services.
func (c *Client) GetLights(ctx context.Context) ([]Light, error) {
	return getCollection[Light](ctx, c, "/clip/v2/resource/light")
}

// GetBridgeHomes fetches the bridge home groupings.
func (c *Client) GetBridgeHomes(ctx context.Context) ([]BridgeHome, error) {
	return getCollection[BridgeHome](ctx, c, "/clip/v2/resource/bridge_home")
}

// GetMotionSensors fetches all motion sensing services.
func (c *Client) GetMotionSensors(ctx context.Context) ([]MotionResource, error) {
	return getCollection[MotionResource](ctx, c, "/clip/v2/resource/motion")
}

// GetTemperatures fetches all temperature sensing services.
func (c *Client) GetTemperatures(ctx context.Context) ([]TemperatureResource, error) {
	return getCollection[TemperatureResource](ctx, c, "/clip/v2/resource/temperature")
}

// GetLightLevels fetches all ambient light sensing services.
func (c *Client) GetLightLevels(ctx context.Context) ([]LightLevelResource, error) {
	return getCollection[LightLevelResource](ctx, c, "/clip/v2/resource/light_level")
}

// OpenEventStream opens the bridge's server-sent-event stream.
//
// The returned reader yields the raw text/event-stream body; the caller owns
// it and must Close it. There is no read timeout — the stream is long-lived
// and silence between events is normal.
//
// This call intentionally does not go through the Gateway permit: the
// ingestion loop only ever holds one stream open and must not contend with
// request traffic.
func (c *Client) OpenEventStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/eventstream/clip/v2", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set(applicationKeyHeader, c.appKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: got %d", ErrStatus, resp.StatusCode)
	}

	return resp.Body, nil
}

// getCollection fetches and unwraps one CLIP v2 collection endpoint.
func getCollection[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set(applicationKeyHeader, c.appKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: got %d from %s", ErrStatus, resp.StatusCode, path)
	}

	var envelope listResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrStatus, envelope.Errors[0].Description)
	}

	return envelope.Data, nil
}
