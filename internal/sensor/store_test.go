package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huewatch/core/internal/hue"
)

// mockFetcher is a test implementation of Fetcher.
type mockFetcher struct {
	mu    sync.Mutex
	calls int
	data  *hue.SensorData
	err   error
}

func (m *mockFetcher) FetchSensorData(_ context.Context) (*hue.SensorData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockReplayer is a test implementation of Replayer.
type mockReplayer struct {
	events []hue.Event
}

func (m *mockReplayer) Replay() []hue.Event { return m.events }

// fakeClock hands out a controllable time.
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

func newTestStore(f Fetcher) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(f, 5*time.Minute, 15*time.Minute)
	s.now = clock.Now
	return s, clock
}

func TestStore_ServesFromCacheWithinTTL(t *testing.T) {
	fetcher := &mockFetcher{data: testSensorData()}
	store, clock := newTestStore(fetcher)

	if _, err := store.Sensors(context.Background()); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := store.Sensors(context.Background()); err != nil {
		t.Fatalf("cached read failed: %v", err)
	}

	if got := fetcher.callCount(); got != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", got)
	}
}

func TestStore_RefreshesAfterTTL(t *testing.T) {
	fetcher := &mockFetcher{data: testSensorData()}
	store, clock := newTestStore(fetcher)

	if _, err := store.Sensors(context.Background()); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	clock.Advance(6 * time.Minute)
	if _, err := store.Sensors(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if got := fetcher.callCount(); got != 2 {
		t.Errorf("expected 2 upstream fetches, got %d", got)
	}
}

func TestStore_FailedRefreshDiscardsSnapshot(t *testing.T) {
	fetcher := &mockFetcher{data: testSensorData()}
	store, clock := newTestStore(fetcher)

	if _, err := store.Sensors(context.Background()); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}

	clock.Advance(6 * time.Minute)
	upstreamErr := errors.New("bridge unreachable")
	fetcher.mu.Lock()
	fetcher.err = upstreamErr
	fetcher.mu.Unlock()

	if _, err := store.Sensors(context.Background()); !errors.Is(err, upstreamErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	// Recovery must fetch again rather than resurrect stale state.
	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.mu.Unlock()

	if _, err := store.Sensors(context.Background()); err != nil {
		t.Fatalf("recovery fetch failed: %v", err)
	}
	if got := fetcher.callCount(); got != 3 {
		t.Errorf("expected 3 upstream fetches, got %d", got)
	}
}

func TestStore_BackfillsReplayedEvents(t *testing.T) {
	fetcher := &mockFetcher{data: testSensorData()}
	store, clock := newTestStore(fetcher)
	store.SetReplayer(&mockReplayer{events: []hue.Event{
		hue.TemperatureEvent{
			ID:          "tmp-hall",
			Owner:       "dev-hall",
			Temperature: 25.0,
			Changed:     clock.Now(),
			Enabled:     true,
		},
	}})

	sensors, err := store.Sensors(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	for _, c := range sensors {
		if c.DeviceID == "dev-hall" {
			if c.Temperature.Temperature != 25.0 {
				t.Errorf("expected backfilled temperature 25.0, got %v", c.Temperature.Temperature)
			}
			return
		}
	}
	t.Fatal("hallway composite missing")
}

func TestStore_ApplyEventUpdatesCachedState(t *testing.T) {
	fetcher := &mockFetcher{data: testSensorData()}
	store, clock := newTestStore(fetcher)

	if _, err := store.Sensors(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	store.ApplyEvent(hue.MotionEvent{
		ID:       "mot-hall",
		Owner:    "dev-hall",
		Presence: false,
		Changed:  clock.Now().Add(time.Minute),
		Enabled:  true,
	})

	clock.Advance(time.Minute)
	sensors, err := store.Sensors(context.Background())
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("expected live event to be served from cache, got %d fetches", got)
	}

	for _, c := range sensors {
		if c.DeviceID == "dev-hall" {
			if c.Motion.Presence {
				t.Error("expected live event to clear presence")
			}
			if len(c.Motion.History) != 2 {
				t.Errorf("expected 2 motion samples, got %d", len(c.Motion.History))
			}
		}
	}
}

func TestStore_ApplyEventBeforeFirstFetchIgnored(t *testing.T) {
	fetcher := &mockFetcher{data: testSensorData()}
	store, clock := newTestStore(fetcher)

	// Must not panic or create state out of thin air.
	store.ApplyEvent(hue.MotionEvent{
		ID:      "mot-hall",
		Owner:   "dev-hall",
		Changed: clock.Now(),
		Enabled: true,
	})

	sensors, err := store.Sensors(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(sensors) != 2 {
		t.Errorf("expected 2 composites from fetch, got %d", len(sensors))
	}
}

func TestStore_ReturnsIsolatedCopies(t *testing.T) {
	fetcher := &mockFetcher{data: testSensorData()}
	store, _ := newTestStore(fetcher)

	first, err := store.Sensors(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	first[0].Name = "mutated"
	if first[0].Motion != nil {
		first[0].Motion.Presence = !first[0].Motion.Presence
	}

	second, err := store.Sensors(context.Background())
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if second[0].Name == "mutated" {
		t.Error("caller mutation leaked into the store snapshot")
	}
}

func TestStore_SensorLookup(t *testing.T) {
	fetcher := &mockFetcher{data: testSensorData()}
	store, _ := newTestStore(fetcher)

	c, found, err := store.Sensor(context.Background(), "dev-hall")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !found {
		t.Fatal("expected dev-hall to be found")
	}
	if c.Name != "Hallway" {
		t.Errorf("expected Hallway, got %q", c.Name)
	}

	_, found, err = store.Sensor(context.Background(), "dev-missing")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found {
		t.Error("expected miss for unknown device id")
	}
}
