package sensor

import (
	"time"

	"github.com/huewatch/core/internal/hue"
)

// Matches reports whether an event belongs to this composite: either the
// event's owner is the composite's device, or the event targets one of the
// composite's capability resources directly (some event payloads omit the
// owner link).
func (c *CompositeSensor) Matches(ev hue.Event) bool {
	if owner := ev.OwnerID(); owner != "" && owner == c.DeviceID {
		return true
	}
	id := ev.ResourceID()
	if id == "" {
		return false
	}
	switch {
	case c.Motion != nil && c.Motion.ResourceID == id:
		return true
	case c.Temperature != nil && c.Temperature.ResourceID == id:
		return true
	case c.LightLevel != nil && c.LightLevel.ResourceID == id:
		return true
	}
	return false
}

// Apply folds one matching event into the composite's state and history,
// pruning the history to the window afterwards. A capability the composite
// has not seen before is created on first sighting. It reports whether
// anything changed; non-sensor events are ignored.
//
// Apply does not check Matches; callers route events first.
func (c *CompositeSensor) Apply(ev hue.Event, now time.Time, window time.Duration) bool {
	switch e := ev.(type) {
	case hue.MotionEvent:
		if c.Motion == nil {
			c.Motion = &MotionState{ResourceID: e.ID}
		}
		m := c.Motion
		m.Presence = e.Presence
		m.Enabled = e.Enabled
		m.LastUpdated = e.Changed
		m.History = upsertSample(m.History, Sample[bool]{Time: e.Changed, Value: e.Presence})
		m.History = pruneWindow(m.History, now, window)

	case hue.TemperatureEvent:
		if c.Temperature == nil {
			c.Temperature = &TemperatureState{ResourceID: e.ID}
		}
		t := c.Temperature
		t.Temperature = e.Temperature
		t.Enabled = e.Enabled
		t.LastUpdated = e.Changed
		t.History = upsertSample(t.History, Sample[float64]{Time: e.Changed, Value: e.Temperature})
		t.History = pruneWindow(t.History, now, window)

	case hue.LightLevelEvent:
		if c.LightLevel == nil {
			c.LightLevel = &LightState{ResourceID: e.ID}
		}
		l := c.LightLevel
		l.Level = e.Level
		l.Enabled = e.Enabled
		l.LastUpdated = e.Changed
		l.History = upsertSample(l.History, Sample[int]{Time: e.Changed, Value: e.Level})
		l.History = pruneWindow(l.History, now, window)

	default:
		return false
	}

	c.Enabled = c.allEnabled()
	return true
}

// allEnabled is the AND over present capabilities; a composite with no
// capability at all counts as enabled.
func (c *CompositeSensor) allEnabled() bool {
	if c.Motion != nil && !c.Motion.Enabled {
		return false
	}
	if c.Temperature != nil && !c.Temperature.Enabled {
		return false
	}
	if c.LightLevel != nil && !c.LightLevel.Enabled {
		return false
	}
	return true
}
