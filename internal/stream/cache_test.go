package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/huewatch/core/internal/hue"
)

func newTestCache(maxAge time.Duration) (*EventCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewEventCache(maxAge)
	c.now = clock.Now
	return c, clock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func motionRaw(id string) []byte {
	return []byte(`{"type":"motion","id":"` + id + `","motion":{"motion_report":{"motion":true,"changed":"2025-06-01T12:00:00Z"}}}`)
}

func TestEventCache_RetainsInArrivalOrder(t *testing.T) {
	cache, _ := newTestCache(30 * time.Minute)

	for _, id := range []string{"a", "b", "c"} {
		raw := motionRaw(id)
		ev, ok := hue.DecodeEvent(raw)
		if !ok {
			t.Fatalf("decode failed for %s", id)
		}
		cache.Add(raw, ev)
	}

	events := cache.Replay()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, id := range []string{"a", "b", "c"} {
		if events[i].ResourceID() != id {
			t.Errorf("event %d: expected id %q, got %q", i, id, events[i].ResourceID())
		}
	}
}

func TestEventCache_TrimsExpiredPrefix(t *testing.T) {
	cache, clock := newTestCache(30 * time.Minute)

	add := func(id string) {
		raw := motionRaw(id)
		ev, _ := hue.DecodeEvent(raw)
		cache.Add(raw, ev)
	}

	add("old-1")
	add("old-2")
	clock.Advance(20 * time.Minute)
	add("mid")
	clock.Advance(15 * time.Minute) // old-* are now 35 minutes old

	events := cache.Replay()
	if len(events) != 1 {
		t.Fatalf("expected 1 retained event, got %d", len(events))
	}
	if events[0].ResourceID() != "mid" {
		t.Errorf("expected mid to survive, got %q", events[0].ResourceID())
	}
}

func TestEventCache_SnapshotCopiesRaw(t *testing.T) {
	cache, _ := newTestCache(30 * time.Minute)

	raw := motionRaw("a")
	ev, _ := hue.DecodeEvent(raw)
	cache.Add(raw, ev)

	// Mutating the caller's buffer must not affect the cached copy.
	raw[0] = 'X'

	snap := cache.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snap))
	}
	if snap[0].Raw[0] != '{' {
		t.Error("cache retained a reference to the caller's buffer")
	}
}

func TestEventCache_Len(t *testing.T) {
	cache, clock := newTestCache(10 * time.Minute)

	raw := motionRaw("a")
	ev, _ := hue.DecodeEvent(raw)
	cache.Add(raw, ev)

	if got := cache.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	clock.Advance(11 * time.Minute)
	if got := cache.Len(); got != 0 {
		t.Errorf("Len() after expiry = %d, want 0", got)
	}
}
