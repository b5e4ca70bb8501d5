package hue

import (
	"encoding/json"
	"strings"
	"time"
)

// Event is one decoded bridge event. The concrete type is one of
// MotionEvent, TemperatureEvent, LightLevelEvent or UnparsedEvent; the set
// is closed so downstream code can switch exhaustively instead of probing
// raw JSON.
type Event interface {
	// ResourceID returns the id of the resource the event refers to, or "".
	ResourceID() string

	// OwnerID returns the owning device id, or "" when the payload carries
	// no owner link (some event types omit it).
	OwnerID() string

	sealed()
}

// MotionEvent is a presence change from a motion sensing service.
type MotionEvent struct {
	ID       string
	Owner    string
	Presence bool
	Changed  time.Time
	Enabled  bool
}

// TemperatureEvent is a temperature change in Celsius.
type TemperatureEvent struct {
	ID          string
	Owner       string
	Temperature float64
	Changed     time.Time
	Enabled     bool
}

// LightLevelEvent is an ambient light level change.
type LightLevelEvent struct {
	ID      string
	Owner   string
	Level   int
	Changed time.Time
	Enabled bool
}

// UnparsedEvent is any well-formed JSON object whose type is not one of the
// recognised sensor kinds. It still flows through the event cache and bus so
// subscribers see the full upstream stream, but it is ignored by the sensor
// state store.
type UnparsedEvent struct {
	ID    string
	Owner string
	Raw   json.RawMessage
}

func (e MotionEvent) ResourceID() string      { return e.ID }
func (e MotionEvent) OwnerID() string         { return e.Owner }
func (MotionEvent) sealed()                   {}
func (e TemperatureEvent) ResourceID() string { return e.ID }
func (e TemperatureEvent) OwnerID() string    { return e.Owner }
func (TemperatureEvent) sealed()              {}
func (e LightLevelEvent) ResourceID() string  { return e.ID }
func (e LightLevelEvent) OwnerID() string     { return e.Owner }
func (LightLevelEvent) sealed()               {}
func (e UnparsedEvent) ResourceID() string    { return e.ID }
func (e UnparsedEvent) OwnerID() string       { return e.Owner }
func (UnparsedEvent) sealed()                 {}

// rawUpdate is the shape shared by all resource-update payloads. Reports
// stay nested exactly as the bridge serialises them.
type rawUpdate struct {
	Type        string              `json:"type"`
	ID          string              `json:"id"`
	Owner       *ResourceIdentifier `json:"owner"`
	Enabled     *bool               `json:"enabled"`
	Motion      *MotionFeature      `json:"motion"`
	Temperature *TemperatureFeature `json:"temperature"`
	Light       *LightLevelFeature  `json:"light"`
}

// DecodeEvent converts one raw update payload into a typed Event.
//
// Recognised kinds (motion, temperature, light_level) become their typed
// variant when the expected report object is present. Every other JSON
// object becomes an UnparsedEvent. Payloads that are not JSON objects are
// rejected entirely.
//
// The ok result is false only for undecodable input; malformed lines are
// dropped by callers, never surfaced as errors.
func DecodeEvent(raw []byte) (Event, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var u rawUpdate
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, false
	}

	owner := ""
	if u.Owner != nil {
		owner = u.Owner.RID
	}
	enabled := true
	if u.Enabled != nil {
		enabled = *u.Enabled
	}

	if u.ID != "" {
		switch u.Type {
		case "motion":
			if u.Motion != nil && u.Motion.MotionReport != nil {
				r := u.Motion.MotionReport
				return MotionEvent{
					ID:       u.ID,
					Owner:    owner,
					Presence: r.Motion,
					Changed:  ParseChanged(r.Changed),
					Enabled:  enabled,
				}, true
			}
		case "temperature":
			if u.Temperature != nil && u.Temperature.TemperatureReport != nil {
				r := u.Temperature.TemperatureReport
				return TemperatureEvent{
					ID:          u.ID,
					Owner:       owner,
					Temperature: r.Temperature,
					Changed:     ParseChanged(r.Changed),
					Enabled:     enabled,
				}, true
			}
		case "light_level":
			if u.Light != nil && u.Light.LightLevelReport != nil {
				r := u.Light.LightLevelReport
				return LightLevelEvent{
					ID:      u.ID,
					Owner:   owner,
					Level:   r.LightLevel,
					Changed: ParseChanged(r.Changed),
					Enabled: enabled,
				}, true
			}
		}
	}

	// Keep a verbatim copy: unparsed events are still replayed and broadcast.
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return UnparsedEvent{ID: u.ID, Owner: owner, Raw: cp}, true
}

// ParseChanged parses the bridge's ISO-8601 change timestamp.
// Absent or unparsable timestamps fall back to the current time, matching
// how report timestamps are treated on the fetch path.
func ParseChanged(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

// sseDataPrefix marks payload lines in a text/event-stream body.
const sseDataPrefix = "data: "

// streamEnvelope is one entry of the JSON array carried by an SSE data line.
type streamEnvelope struct {
	Data []json.RawMessage `json:"data"`
}

// DecodeFrame extracts the individual resource updates from one line of the
// bridge's event stream.
//
// Data lines hold a JSON array of envelopes, each with a "data" array of
// updates; all updates are flattened into one slice in stream order.
// Non-data lines (comments, event ids, keep-alives) and unparsable frames
// yield nil — they are expected and must not interrupt the stream.
func DecodeFrame(line string) []json.RawMessage {
	payload, ok := strings.CutPrefix(line, sseDataPrefix)
	if !ok {
		return nil
	}

	var envelopes []streamEnvelope
	if err := json.Unmarshal([]byte(payload), &envelopes); err != nil {
		return nil
	}

	var updates []json.RawMessage
	for _, env := range envelopes {
		updates = append(updates, env.Data...)
	}
	return updates
}
