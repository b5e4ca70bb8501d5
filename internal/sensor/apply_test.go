package sensor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/huewatch/core/internal/hue"
)

func testComposite() CompositeSensor {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return CompositeSensor{
		DeviceID: "dev-1",
		Name:     "Landing",
		Enabled:  true,
		Motion: &MotionState{
			ResourceID:  "mot-1",
			Enabled:     true,
			Presence:    false,
			LastUpdated: base,
			History:     []Sample[bool]{{Time: base, Value: false}},
		},
		Temperature: &TemperatureState{
			ResourceID:  "tmp-1",
			Enabled:     true,
			Temperature: 20.0,
			LastUpdated: base,
			History:     []Sample[float64]{{Time: base, Value: 20.0}},
		},
	}
}

func TestMatches(t *testing.T) {
	c := testComposite()

	tests := []struct {
		name string
		ev   hue.Event
		want bool
	}{
		{
			name: "owner match",
			ev:   hue.MotionEvent{ID: "mot-x", Owner: "dev-1"},
			want: true,
		},
		{
			name: "resource id match without owner",
			ev:   hue.TemperatureEvent{ID: "tmp-1"},
			want: true,
		},
		{
			name: "foreign owner and resource",
			ev:   hue.MotionEvent{ID: "mot-9", Owner: "dev-9"},
			want: false,
		},
		{
			name: "unparsed event with matching owner",
			ev:   hue.UnparsedEvent{ID: "btn-1", Owner: "dev-1", Raw: json.RawMessage(`{}`)},
			want: true,
		},
		{
			name: "empty ids",
			ev:   hue.UnparsedEvent{Raw: json.RawMessage(`{}`)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Matches(tt.ev); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_MotionUpdatesStateAndHistory(t *testing.T) {
	c := testComposite()
	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	changed := c.Apply(hue.MotionEvent{
		ID:       "mot-1",
		Owner:    "dev-1",
		Presence: true,
		Changed:  now,
		Enabled:  true,
	}, now, 15*time.Minute)

	if !changed {
		t.Fatal("expected Apply to report a change")
	}
	if !c.Motion.Presence {
		t.Error("presence not updated")
	}
	if !c.Motion.LastUpdated.Equal(now) {
		t.Error("last updated not advanced")
	}
	if len(c.Motion.History) != 2 {
		t.Fatalf("expected 2 history samples, got %d", len(c.Motion.History))
	}
	if c.Temperature.Temperature != 20.0 {
		t.Error("motion event must not touch temperature state")
	}
}

func TestApply_CreatesCapabilityOnFirstSighting(t *testing.T) {
	c := testComposite()
	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	changed := c.Apply(hue.LightLevelEvent{
		ID:      "lgt-1",
		Owner:   "dev-1",
		Level:   5000,
		Changed: now,
		Enabled: true,
	}, now, 15*time.Minute)

	if !changed {
		t.Fatal("first sighting of a capability must report a change")
	}
	if c.LightLevel == nil {
		t.Fatal("light level capability not created")
	}
	if c.LightLevel.ResourceID != "lgt-1" {
		t.Errorf("resource id = %q, want lgt-1", c.LightLevel.ResourceID)
	}
	if c.LightLevel.Level != 5000 {
		t.Errorf("level = %d, want 5000", c.LightLevel.Level)
	}
	if len(c.LightLevel.History) != 1 {
		t.Errorf("expected 1 history sample, got %d", len(c.LightLevel.History))
	}
}

func TestApply_UnparsedEventIgnored(t *testing.T) {
	c := testComposite()
	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	changed := c.Apply(hue.UnparsedEvent{ID: "btn-1", Owner: "dev-1"}, now, 15*time.Minute)
	if changed {
		t.Error("unparsed events carry no reading and must not change state")
	}
}

func TestApply_ReplayedEventIsIdempotent(t *testing.T) {
	c := testComposite()
	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	ev := hue.TemperatureEvent{
		ID:          "tmp-1",
		Owner:       "dev-1",
		Temperature: 22.5,
		Changed:     now,
		Enabled:     true,
	}

	c.Apply(ev, now, 15*time.Minute)
	c.Apply(ev, now, 15*time.Minute)

	if len(c.Temperature.History) != 2 {
		t.Fatalf("replaying the same event must not duplicate samples, got %d", len(c.Temperature.History))
	}
	if c.Temperature.Temperature != 22.5 {
		t.Errorf("expected 22.5, got %v", c.Temperature.Temperature)
	}
}

func TestApply_DisableEventFlagsCapability(t *testing.T) {
	c := testComposite()
	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	c.Apply(hue.MotionEvent{
		ID:      "mot-1",
		Owner:   "dev-1",
		Changed: now,
		Enabled: false,
	}, now, 15*time.Minute)

	if c.Motion.Enabled {
		t.Error("expected motion capability to be disabled")
	}
	if c.Enabled {
		t.Error("one disabled capability must flip the composite off")
	}

	// Re-enabling the capability restores the composite.
	c.Apply(hue.MotionEvent{
		ID:      "mot-1",
		Owner:   "dev-1",
		Changed: now.Add(time.Minute),
		Enabled: true,
	}, now, 15*time.Minute)

	if !c.Enabled {
		t.Error("all capabilities enabled again, composite should follow")
	}
}

func TestApply_DisabledNewCapabilityFlipsComposite(t *testing.T) {
	c := testComposite()
	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	c.Apply(hue.LightLevelEvent{
		ID:      "lgt-1",
		Owner:   "dev-1",
		Level:   100,
		Changed: now,
		Enabled: false,
	}, now, 15*time.Minute)

	if c.Enabled {
		t.Error("adding a disabled capability must flip composite enabled to false")
	}
}
