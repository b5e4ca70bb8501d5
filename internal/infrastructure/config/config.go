package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for huewatch.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hue       HueConfig       `yaml:"hue"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Cache     CacheConfig     `yaml:"cache"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HueConfig contains Hue bridge connection settings.
type HueConfig struct {
	// Host is the bridge IP or hostname, without scheme.
	Host string `yaml:"host"`

	// ApplicationKey is the registered hue-application-key credential.
	ApplicationKey string `yaml:"application_key"`

	// InsecureSkipVerify disables TLS certificate verification. Hue bridges
	// serve a self-signed certificate, so this defaults to true.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// RequestTimeout is the per-request timeout in seconds for resource
	// fetches. The event stream is exempt (it is long-lived by design).
	RequestTimeout int `yaml:"request_timeout"`
}

// GatewayConfig contains outbound request gating settings.
type GatewayConfig struct {
	// MaxInFlight bounds concurrent outbound requests to the bridge.
	MaxInFlight int `yaml:"max_in_flight"`

	// MaxRetries is the number of retries after a transient failure.
	MaxRetries int `yaml:"max_retries"`
}

// CacheConfig contains settings for the in-process caches and windows.
type CacheConfig struct {
	// EventMaxAge is how long raw events are retained for replay, in minutes.
	EventMaxAge int `yaml:"event_max_age"`

	// SensorsTTL is the aggregate sensor list TTL, in minutes.
	SensorsTTL int `yaml:"sensors_ttl"`

	// HistoryWindow is the per-capability history window, in minutes.
	HistoryWindow int `yaml:"history_window"`

	// SparklineWindow is the compact presentation window, in minutes.
	SparklineWindow int `yaml:"sparkline_window"`

	// BusBacklog is the broadcast backlog shared by all event subscribers.
	BusBacklog int `yaml:"bus_backlog"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
// The write timeout is applied to everything except the event stream
// endpoints, which hold their connection open indefinitely.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains settings for the optional MQTT state republisher.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// HistoryConfig contains settings for the legacy sensor log database.
// The database is populated by the bridge's v1 logging pipeline; huewatch
// only reads it for long-range graphs.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HUEWATCH_SECTION_KEY
// For example: HUEWATCH_HUE_HOST, HUEWATCH_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The gateway and cache numbers match the dashboard's tuning: 3 in-flight
// bridge requests, 5 retries, 30 minute event replay, 5 minute sensor TTL,
// 15/10 minute history windows, 100 event backlog.
func defaultConfig() *Config {
	return &Config{
		Hue: HueConfig{
			InsecureSkipVerify: true,
			RequestTimeout:     30,
		},
		Gateway: GatewayConfig{
			MaxInFlight: 3,
			MaxRetries:  5,
		},
		Cache: CacheConfig{
			EventMaxAge:     30,
			SensorsTTL:      5,
			HistoryWindow:   15,
			SparklineWindow: 10,
			BusBacklog:      100,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "huewatch",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		History: HistoryConfig{
			Path:        "./data/hue-history.db",
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HUEWATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hue bridge
	if v := os.Getenv("HUEWATCH_HUE_HOST"); v != "" {
		cfg.Hue.Host = v
	}
	if v := os.Getenv("HUEWATCH_HUE_KEY"); v != "" {
		cfg.Hue.ApplicationKey = v
	}

	// API
	if v := os.Getenv("HUEWATCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HUEWATCH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("HUEWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HUEWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HUEWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// History database
	if v := os.Getenv("HUEWATCH_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Hue.Host == "" {
		errs = append(errs, "hue.host is required (set HUEWATCH_HUE_HOST environment variable)")
	}
	if c.Hue.ApplicationKey == "" {
		errs = append(errs, "hue.application_key is required (set HUEWATCH_HUE_KEY environment variable)")
	}

	if c.Gateway.MaxInFlight < 1 {
		errs = append(errs, "gateway.max_in_flight must be at least 1")
	}
	if c.Gateway.MaxRetries < 0 {
		errs = append(errs, "gateway.max_retries must not be negative")
	}

	if c.Cache.EventMaxAge < 1 {
		errs = append(errs, "cache.event_max_age must be at least 1 minute")
	}
	if c.Cache.SensorsTTL < 1 {
		errs = append(errs, "cache.sensors_ttl must be at least 1 minute")
	}
	if c.Cache.HistoryWindow < 1 {
		errs = append(errs, "cache.history_window must be at least 1 minute")
	}
	if c.Cache.SparklineWindow < 1 {
		errs = append(errs, "cache.sparkline_window must be at least 1 minute")
	}
	if c.Cache.BusBacklog < 1 {
		errs = append(errs, "cache.bus_backlog must be at least 1")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BridgeBaseURL returns the https base URL for the bridge.
func (c *Config) BridgeBaseURL() string {
	return "https://" + strings.TrimSuffix(strings.TrimSpace(c.Hue.Host), "/")
}

// EventMaxAgeDuration returns the event cache retention as a Duration.
func (c *CacheConfig) EventMaxAgeDuration() time.Duration {
	return time.Duration(c.EventMaxAge) * time.Minute
}

// SensorsTTLDuration returns the aggregate cache TTL as a Duration.
func (c *CacheConfig) SensorsTTLDuration() time.Duration {
	return time.Duration(c.SensorsTTL) * time.Minute
}

// HistoryWindowDuration returns the history window as a Duration.
func (c *CacheConfig) HistoryWindowDuration() time.Duration {
	return time.Duration(c.HistoryWindow) * time.Minute
}

// SparklineWindowDuration returns the presentation window as a Duration.
func (c *CacheConfig) SparklineWindowDuration() time.Duration {
	return time.Duration(c.SparklineWindow) * time.Minute
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// RequestTimeoutDuration returns the per-request bridge timeout as a Duration.
func (c *HueConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
