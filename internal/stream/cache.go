package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/huewatch/core/internal/hue"
)

// CachedEvent is one retained stream event: the decoded form for state
// replay and the verbatim payload for wire replay.
type CachedEvent struct {
	At    time.Time
	Raw   json.RawMessage
	Event hue.Event
}

// EventCache retains recently received events for a bounded age, oldest
// first. Expired entries are trimmed from the front on every insert, so
// the window needs no background sweeper.
//
// All methods are safe for concurrent use.
type EventCache struct {
	mu     sync.Mutex
	maxAge time.Duration
	events []CachedEvent
	now    func() time.Time
}

// NewEventCache creates a cache retaining events up to maxAge old.
func NewEventCache(maxAge time.Duration) *EventCache {
	return &EventCache{
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Add records one received event. The raw payload is copied; the caller
// may reuse its buffer.
func (c *EventCache) Add(raw []byte, ev hue.Event) {
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trimLocked(now)
	c.events = append(c.events, CachedEvent{At: now, Raw: cp, Event: ev})
}

// Replay returns the decoded retained events, oldest first.
func (c *EventCache) Replay() []hue.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trimLocked(c.now())
	out := make([]hue.Event, len(c.events))
	for i, e := range c.events {
		out[i] = e.Event
	}
	return out
}

// Snapshot returns the retained events with their verbatim payloads,
// oldest first.
func (c *EventCache) Snapshot() []CachedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trimLocked(c.now())
	return append([]CachedEvent(nil), c.events...)
}

// Len reports the number of retained events.
func (c *EventCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trimLocked(c.now())
	return len(c.events)
}

// trimLocked drops the expired prefix. Entries are appended in arrival
// order, so expiry is always a prefix.
func (c *EventCache) trimLocked(now time.Time) {
	cutoff := now.Add(-c.maxAge)
	i := 0
	for i < len(c.events) && c.events[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.events = append(c.events[:0], c.events[i:]...)
	}
}
