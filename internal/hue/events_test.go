package hue

import (
	"testing"
	"time"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, ev Event)
		ok    bool
	}{
		{
			name: "motion update",
			raw: `{"type":"motion","id":"mot-1","owner":{"rid":"dev-1","rtype":"device"},
				"enabled":true,"motion":{"motion_report":{"motion":true,"changed":"2025-06-01T12:00:00Z"}}}`,
			ok: true,
			check: func(t *testing.T, ev Event) {
				m, isMotion := ev.(MotionEvent)
				if !isMotion {
					t.Fatalf("expected MotionEvent, got %T", ev)
				}
				if !m.Presence || m.Owner != "dev-1" || m.ID != "mot-1" {
					t.Errorf("unexpected fields: %+v", m)
				}
				want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
				if !m.Changed.Equal(want) {
					t.Errorf("changed = %v, want %v", m.Changed, want)
				}
			},
		},
		{
			name: "temperature update",
			raw:  `{"type":"temperature","id":"tmp-1","temperature":{"temperature_report":{"temperature":21.37,"changed":"2025-06-01T12:00:00Z"}}}`,
			ok:   true,
			check: func(t *testing.T, ev Event) {
				e, isTemp := ev.(TemperatureEvent)
				if !isTemp {
					t.Fatalf("expected TemperatureEvent, got %T", ev)
				}
				if e.Temperature != 21.37 {
					t.Errorf("temperature = %v", e.Temperature)
				}
				if !e.Enabled {
					t.Error("absent enabled flag must default to true")
				}
				if e.Owner != "" {
					t.Errorf("owner = %q, want empty", e.Owner)
				}
			},
		},
		{
			name: "light level update",
			raw:  `{"type":"light_level","id":"lgt-1","enabled":false,"light":{"light_level_report":{"light_level":18000,"changed":"2025-06-01T12:00:00Z"}}}`,
			ok:   true,
			check: func(t *testing.T, ev Event) {
				e, isLight := ev.(LightLevelEvent)
				if !isLight {
					t.Fatalf("expected LightLevelEvent, got %T", ev)
				}
				if e.Level != 18000 || e.Enabled {
					t.Errorf("unexpected fields: %+v", e)
				}
			},
		},
		{
			name: "recognised type without report becomes unparsed",
			raw:  `{"type":"motion","id":"mot-1","owner":{"rid":"dev-1","rtype":"device"}}`,
			ok:   true,
			check: func(t *testing.T, ev Event) {
				u, isUnparsed := ev.(UnparsedEvent)
				if !isUnparsed {
					t.Fatalf("expected UnparsedEvent, got %T", ev)
				}
				if u.ID != "mot-1" || u.Owner != "dev-1" {
					t.Errorf("unexpected fields: %+v", u)
				}
			},
		},
		{
			name: "unknown type becomes unparsed",
			raw:  `{"type":"button","id":"btn-1","button":{"last_event":"short_release"}}`,
			ok:   true,
			check: func(t *testing.T, ev Event) {
				if _, isUnparsed := ev.(UnparsedEvent); !isUnparsed {
					t.Fatalf("expected UnparsedEvent, got %T", ev)
				}
			},
		},
		{
			name: "non-object rejected",
			raw:  `[1,2,3]`,
			ok:   false,
		},
		{
			name: "malformed json rejected",
			raw:  `{"type":`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := DecodeEvent([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}

func TestParseChanged_FallsBackToNow(t *testing.T) {
	before := time.Now().UTC()
	got := ParseChanged("not-a-timestamp")
	after := time.Now().UTC()

	if got.Before(before) || got.After(after) {
		t.Errorf("fallback time %v outside [%v, %v]", got, before, after)
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{
			name: "single envelope with two updates",
			line: `data: [{"type":"update","data":[{"id":"a"},{"id":"b"}]}]`,
			want: 2,
		},
		{
			name: "multiple envelopes flattened in order",
			line: `data: [{"data":[{"id":"a"}]},{"data":[{"id":"b"},{"id":"c"}]}]`,
			want: 3,
		},
		{
			name: "keep-alive comment",
			line: `: hi`,
			want: 0,
		},
		{
			name: "id line",
			line: `id: 1718000000:0`,
			want: 0,
		},
		{
			name: "empty line",
			line: ``,
			want: 0,
		},
		{
			name: "malformed payload dropped",
			line: `data: {not json`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeFrame(tt.line)
			if len(got) != tt.want {
				t.Errorf("got %d updates, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDecodeFrame_PreservesOrder(t *testing.T) {
	line := `data: [{"data":[{"id":"a"}]},{"data":[{"id":"b"}]}]`
	updates := DecodeFrame(line)
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if string(updates[0]) != `{"id":"a"}` || string(updates[1]) != `{"id":"b"}` {
		t.Errorf("order not preserved: %s, %s", updates[0], updates[1])
	}
}
