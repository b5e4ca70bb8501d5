package sensor

import (
	"strconv"
	"strings"
	"time"
)

// Sample is one timestamped reading in a capability's history window.
type Sample[T any] struct {
	Time  time.Time `json:"time"`
	Value T         `json:"value"`
}

// MotionState is the motion capability of a composite sensor.
type MotionState struct {
	ResourceID  string         `json:"resource_id"`
	LegacyID    int            `json:"legacy_id,omitempty"`
	Enabled     bool           `json:"enabled"`
	Presence    bool           `json:"presence"`
	LastUpdated time.Time      `json:"last_updated"`
	History     []Sample[bool] `json:"history,omitempty"`
}

// TemperatureState is the temperature capability of a composite sensor.
// Values are degrees Celsius.
type TemperatureState struct {
	ResourceID  string            `json:"resource_id"`
	LegacyID    int               `json:"legacy_id,omitempty"`
	Enabled     bool              `json:"enabled"`
	Temperature float64           `json:"temperature"`
	LastUpdated time.Time         `json:"last_updated"`
	History     []Sample[float64] `json:"history,omitempty"`
}

// LightState is the ambient light capability of a composite sensor.
// Values use the bridge's 10000*log10(lux)+1 encoding.
type LightState struct {
	ResourceID  string        `json:"resource_id"`
	LegacyID    int           `json:"legacy_id,omitempty"`
	Enabled     bool          `json:"enabled"`
	Level       int           `json:"level"`
	LastUpdated time.Time     `json:"last_updated"`
	History     []Sample[int] `json:"history,omitempty"`
}

// CompositeSensor joins a device's sensing services into one dashboard unit.
// Capabilities the device does not report are nil.
type CompositeSensor struct {
	DeviceID    string            `json:"device_id"`
	LegacyID    int               `json:"legacy_id,omitempty"`
	Name        string            `json:"name"`
	ProductName string            `json:"product_name,omitempty"`
	Outdoor     bool              `json:"outdoor"`
	Enabled     bool              `json:"enabled"`
	Motion      *MotionState      `json:"motion,omitempty"`
	Temperature *TemperatureState `json:"temperature,omitempty"`
	LightLevel  *LightState       `json:"light_level,omitempty"`
}

// Clone returns a deep copy. History slices are copied so callers can hold
// the result across lock boundaries.
func (c *CompositeSensor) Clone() CompositeSensor {
	out := *c
	if c.Motion != nil {
		m := *c.Motion
		m.History = append([]Sample[bool](nil), c.Motion.History...)
		out.Motion = &m
	}
	if c.Temperature != nil {
		t := *c.Temperature
		t.History = append([]Sample[float64](nil), c.Temperature.History...)
		out.Temperature = &t
	}
	if c.LightLevel != nil {
		l := *c.LightLevel
		l.History = append([]Sample[int](nil), c.LightLevel.History...)
		out.LightLevel = &l
	}
	return out
}

// Fingerprint concatenates the last-updated stamps of every present
// capability. Two composites with equal fingerprints carry the same
// readings, so clients can use it as a cheap change detector.
func (c *CompositeSensor) Fingerprint() string {
	var b strings.Builder
	if c.Motion != nil {
		b.WriteString(c.Motion.LastUpdated.UTC().Format(time.RFC3339Nano))
	}
	b.WriteByte('|')
	if c.Temperature != nil {
		b.WriteString(c.Temperature.LastUpdated.UTC().Format(time.RFC3339Nano))
	}
	b.WriteByte('|')
	if c.LightLevel != nil {
		b.WriteString(c.LightLevel.LastUpdated.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

// HasCapability reports whether at least one sensing capability is present.
func (c *CompositeSensor) HasCapability() bool {
	return c.Motion != nil || c.Temperature != nil || c.LightLevel != nil
}

// ParseLegacyID extracts the numeric sensor number from a v1 resource path
// such as "/sensors/33". It returns 0 when the path is absent or not a
// sensor path.
func ParseLegacyID(idV1 string) int {
	const prefix = "/sensors/"
	if !strings.HasPrefix(idV1, prefix) {
		return 0
	}
	n, err := strconv.Atoi(idV1[len(prefix):])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
