package sensor

import "time"

// ToSparkline narrows every capability history to the presentation window,
// keeping the anchor sample just before it so short sparklines still span
// the full window. The input is not modified.
func ToSparkline(sensors []CompositeSensor, now time.Time, window time.Duration) []CompositeSensor {
	out := make([]CompositeSensor, len(sensors))
	for i := range sensors {
		c := sensors[i].Clone()
		if c.Motion != nil {
			c.Motion.History = latestWithin(c.Motion.History, now, window)
		}
		if c.Temperature != nil {
			c.Temperature.History = latestWithin(c.Temperature.History, now, window)
		}
		if c.LightLevel != nil {
			c.LightLevel.History = latestWithin(c.LightLevel.History, now, window)
		}
		out[i] = c
	}
	return out
}
