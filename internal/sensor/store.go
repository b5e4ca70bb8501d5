package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/huewatch/core/internal/hue"
)

// Fetcher provides the consistent bulk fetch the store refreshes from.
type Fetcher interface {
	FetchSensorData(ctx context.Context) (*hue.SensorData, error)
}

// Replayer yields the recently received stream events, oldest first. The
// store folds them over every snapshot it hands out so a snapshot taken
// moments after a bulk fetch still reflects events that raced the fetch.
type Replayer interface {
	Replay() []hue.Event
}

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Store caches the composite sensor snapshot with a TTL and keeps it
// current between refreshes by applying live stream events.
//
// Reads within the TTL are served from memory; the first read after expiry
// refreshes from the Fetcher. Concurrent expired reads share one fetch. A
// failed refresh discards the stale snapshot rather than serving it.
//
// All methods are safe for concurrent use.
type Store struct {
	fetcher Fetcher
	replay  Replayer
	logger  Logger

	ttl    time.Duration
	window time.Duration
	now    func() time.Time

	// fetchMu serialises refreshes; mu guards the snapshot.
	fetchMu sync.Mutex
	mu      sync.Mutex

	sensors   []CompositeSensor
	fetchedAt time.Time
}

// NewStore creates a Store refreshing from fetcher. ttl is how long a
// snapshot is served before a refresh; window is the history span kept per
// capability.
func NewStore(fetcher Fetcher, ttl, window time.Duration) *Store {
	return &Store{
		fetcher: fetcher,
		logger:  noopLogger{},
		ttl:     ttl,
		window:  window,
		now:     time.Now,
	}
}

// SetReplayer attaches the event replay source used for backfill.
func (s *Store) SetReplayer(r Replayer) {
	s.replay = r
}

// SetLogger sets the logger used for refresh reporting.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Sensors returns a deep-copied snapshot of every composite sensor,
// refreshing from the bridge when the cached snapshot has expired.
func (s *Store) Sensors(ctx context.Context) ([]CompositeSensor, error) {
	if out, ok := s.fromCache(); ok {
		return out, nil
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	// Another caller may have refreshed while we waited for the fetch lock.
	if out, ok := s.fromCache(); ok {
		return out, nil
	}

	data, err := s.fetcher.FetchSensorData(ctx)
	if err != nil {
		s.mu.Lock()
		s.sensors = nil
		s.fetchedAt = time.Time{}
		s.mu.Unlock()
		s.logger.Warn("sensor refresh failed, snapshot discarded", "error", err)
		return nil, err
	}

	now := s.now()
	built := BuildComposite(data, now, s.window)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensors = built
	s.fetchedAt = now
	s.backfillLocked(now)
	s.logger.Debug("sensor snapshot refreshed", "sensors", len(built))
	return s.cloneLocked(), nil
}

// Sensor returns one composite by device id from the current snapshot,
// refreshing it the same way Sensors does.
func (s *Store) Sensor(ctx context.Context, deviceID string) (CompositeSensor, bool, error) {
	sensors, err := s.Sensors(ctx)
	if err != nil {
		return CompositeSensor{}, false, err
	}
	for _, c := range sensors {
		if c.DeviceID == deviceID {
			return c, true, nil
		}
	}
	return CompositeSensor{}, false, nil
}

// ApplyEvent folds one live stream event into the cached snapshot. Events
// arriving before the first successful fetch are dropped; the fetch that
// follows will observe their effect directly.
func (s *Store) ApplyEvent(ev hue.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchedAt.IsZero() {
		return
	}
	now := s.now()
	for i := range s.sensors {
		if s.sensors[i].Matches(ev) {
			s.sensors[i].Apply(ev, now, s.window)
		}
	}
}

// fromCache returns a snapshot when the cached one is still fresh.
func (s *Store) fromCache() ([]CompositeSensor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	s.backfillLocked(s.now())
	return s.cloneLocked(), true
}

// backfillLocked replays cached stream events over the snapshot. Replay is
// idempotent: a sample with an already-recorded timestamp overwrites in
// place instead of duplicating.
func (s *Store) backfillLocked(now time.Time) {
	if s.replay == nil {
		return
	}
	for _, ev := range s.replay.Replay() {
		for i := range s.sensors {
			if s.sensors[i].Matches(ev) {
				s.sensors[i].Apply(ev, now, s.window)
			}
		}
	}
}

func (s *Store) cloneLocked() []CompositeSensor {
	out := make([]CompositeSensor, len(s.sensors))
	for i := range s.sensors {
		out[i] = s.sensors[i].Clone()
	}
	return out
}
