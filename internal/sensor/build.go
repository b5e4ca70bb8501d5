package sensor

import (
	"sort"
	"strings"
	"time"

	"github.com/huewatch/core/internal/hue"
)

// BuildComposite joins a consistent bulk fetch into composite sensors.
//
// Each device contributes one composite carrying the capabilities whose
// services it owns. Capabilities whose resource has never produced a report
// are omitted. Devices left with no capability at all (lights, plugs,
// the bridge itself) are dropped. Each present capability is seeded with a
// single history sample at its report time.
//
// The result is sorted outdoor sensors first, then by name, so the
// dashboard order is stable across refreshes.
func BuildComposite(data *hue.SensorData, now time.Time, window time.Duration) []CompositeSensor {
	motionByOwner := make(map[string]hue.MotionResource)
	for _, m := range data.Motions {
		if m.Owner != nil {
			motionByOwner[m.Owner.RID] = m
		}
	}
	tempByOwner := make(map[string]hue.TemperatureResource)
	for _, t := range data.Temperatures {
		if t.Owner != nil {
			tempByOwner[t.Owner.RID] = t
		}
	}
	lightByOwner := make(map[string]hue.LightLevelResource)
	for _, l := range data.LightLevels {
		if l.Owner != nil {
			lightByOwner[l.Owner.RID] = l
		}
	}

	sensors := make([]CompositeSensor, 0, len(motionByOwner))
	for _, dev := range data.Devices {
		c := CompositeSensor{
			DeviceID: dev.ID,
			Name:     "Unnamed sensor",
			Enabled:  true,
		}
		if dev.Metadata != nil && dev.Metadata.Name != "" {
			c.Name = dev.Metadata.Name
		}
		if dev.ProductData != nil {
			c.ProductName = dev.ProductData.ProductName
		}
		c.Outdoor = isOutdoor(c.Name, c.ProductName)

		if m, ok := motionByOwner[dev.ID]; ok {
			c.Motion = buildMotion(m, now, window)
		}
		if t, ok := tempByOwner[dev.ID]; ok {
			c.Temperature = buildTemperature(t, now, window)
		}
		if l, ok := lightByOwner[dev.ID]; ok {
			c.LightLevel = buildLightLevel(l, now, window)
		}
		if !c.HasCapability() {
			continue
		}

		c.Enabled = c.allEnabled()
		c.LegacyID = compositeLegacyID(&c)
		sensors = append(sensors, c)
	}

	sort.SliceStable(sensors, func(i, j int) bool {
		if sensors[i].Outdoor != sensors[j].Outdoor {
			return sensors[i].Outdoor
		}
		return sensors[i].Name < sensors[j].Name
	})
	return sensors
}

func buildMotion(m hue.MotionResource, now time.Time, window time.Duration) *MotionState {
	if m.Motion == nil || m.Motion.MotionReport == nil {
		return nil
	}
	r := m.Motion.MotionReport
	changed := hue.ParseChanged(r.Changed)
	s := &MotionState{
		ResourceID:  m.ID,
		LegacyID:    ParseLegacyID(m.IDV1),
		Enabled:     enabled(m.Enabled),
		Presence:    r.Motion,
		LastUpdated: changed,
		History:     []Sample[bool]{{Time: changed, Value: r.Motion}},
	}
	s.History = pruneWindow(s.History, now, window)
	return s
}

func buildTemperature(t hue.TemperatureResource, now time.Time, window time.Duration) *TemperatureState {
	if t.Temperature == nil || t.Temperature.TemperatureReport == nil {
		return nil
	}
	r := t.Temperature.TemperatureReport
	changed := hue.ParseChanged(r.Changed)
	s := &TemperatureState{
		ResourceID:  t.ID,
		LegacyID:    ParseLegacyID(t.IDV1),
		Enabled:     enabled(t.Enabled),
		Temperature: r.Temperature,
		LastUpdated: changed,
		History:     []Sample[float64]{{Time: changed, Value: r.Temperature}},
	}
	s.History = pruneWindow(s.History, now, window)
	return s
}

func buildLightLevel(l hue.LightLevelResource, now time.Time, window time.Duration) *LightState {
	if l.Light == nil || l.Light.LightLevelReport == nil {
		return nil
	}
	r := l.Light.LightLevelReport
	changed := hue.ParseChanged(r.Changed)
	s := &LightState{
		ResourceID:  l.ID,
		LegacyID:    ParseLegacyID(l.IDV1),
		Enabled:     enabled(l.Enabled),
		Level:       r.LightLevel,
		LastUpdated: changed,
		History:     []Sample[int]{{Time: changed, Value: r.LightLevel}},
	}
	s.History = pruneWindow(s.History, now, window)
	return s
}

// enabled treats an absent enabled flag as on; the bridge omits it for
// services that cannot be disabled.
func enabled(v *bool) bool {
	return v == nil || *v
}

// isOutdoor classifies a sensor from its user-given name or product name.
func isOutdoor(name, productName string) bool {
	return strings.Contains(strings.ToLower(name), "outdoor") ||
		strings.Contains(strings.ToLower(productName), "outdoor")
}

// compositeLegacyID picks the device's primary v1 sensor number, preferring
// motion since that is the number the legacy recorder keys its rows by.
func compositeLegacyID(c *CompositeSensor) int {
	if c.Motion != nil && c.Motion.LegacyID != 0 {
		return c.Motion.LegacyID
	}
	if c.Temperature != nil && c.Temperature.LegacyID != 0 {
		return c.Temperature.LegacyID
	}
	if c.LightLevel != nil && c.LightLevel.LegacyID != 0 {
		return c.LightLevel.LegacyID
	}
	return 0
}
