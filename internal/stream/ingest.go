package stream

import (
	"bufio"
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/huewatch/core/internal/hue"
)

// reconnectDelay is the pause between upstream connection attempts.
const reconnectDelay = time.Second

// scanBufferSize bounds one stream line. Bridge frames are small; this
// leaves generous headroom for bulk scene payloads.
const scanBufferSize = 1 << 20

// StreamOpener opens the upstream event stream.
type StreamOpener interface {
	OpenEventStream(ctx context.Context) (io.ReadCloser, error)
}

// Applier receives every decoded event for state maintenance.
type Applier interface {
	ApplyEvent(ev hue.Event)
}

// Publisher receives every decoded event for external republish.
type Publisher interface {
	PublishEvent(ev hue.Event) error
}

// Logger defines the logging interface used by the Ingestor.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Ingestor owns the single upstream stream connection. Start is idempotent;
// the first call wins and later calls are no-ops, so any request handler
// can lazily ensure ingestion is running without coordination.
//
// The loop reconnects after any failure and never gives up; the stream is
// the only push channel from the bridge, so staying subscribed matters more
// than any individual error.
type Ingestor struct {
	opener    StreamOpener
	cache     *EventCache
	bus       *Bus
	applier   Applier
	publisher Publisher
	logger    Logger

	started atomic.Bool
	sleep   func(ctx context.Context, d time.Duration)
}

// NewIngestor creates an Ingestor fanning out to cache, applier and bus.
func NewIngestor(opener StreamOpener, cache *EventCache, applier Applier, bus *Bus) *Ingestor {
	return &Ingestor{
		opener:  opener,
		cache:   cache,
		bus:     bus,
		applier: applier,
		logger:  noopLogger{},
		sleep:   sleepContext,
	}
}

// SetPublisher attaches an optional external publisher for decoded events.
func (i *Ingestor) SetPublisher(p Publisher) {
	i.publisher = p
}

// SetLogger sets the logger used for connection reporting.
func (i *Ingestor) SetLogger(logger Logger) {
	i.logger = logger
}

// Start launches the ingestion loop unless it is already running. It
// reports whether this call started the loop. The loop runs until ctx is
// cancelled, then closes the bus.
func (i *Ingestor) Start(ctx context.Context) bool {
	if !i.started.CompareAndSwap(false, true) {
		return false
	}
	go i.run(ctx)
	return true
}

// Running reports whether the ingestion loop has been started.
func (i *Ingestor) Running() bool {
	return i.started.Load()
}

func (i *Ingestor) run(ctx context.Context) {
	defer i.bus.Close()

	for ctx.Err() == nil {
		stream, err := i.opener.OpenEventStream(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			i.logger.Warn("event stream connect failed, retrying",
				"delay", reconnectDelay,
				"error", err,
			)
			i.sleep(ctx, reconnectDelay)
			continue
		}

		i.logger.Info("event stream connected")
		err = i.consume(stream)
		stream.Close() //nolint:errcheck // Stream is done either way

		if ctx.Err() != nil {
			return
		}
		i.logger.Warn("event stream disconnected, reconnecting",
			"delay", reconnectDelay,
			"error", err,
		)
		i.sleep(ctx, reconnectDelay)
	}
}

// consume reads the stream line by line until it ends. Frames are decoded
// into individual updates; each update is cached, applied, optionally
// republished and broadcast. Undecodable payloads are dropped silently,
// keep-alive comments never reach DecodeFrame's data prefix.
func (i *Ingestor) consume(stream io.Reader) error {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)

	for scanner.Scan() {
		for _, raw := range hue.DecodeFrame(scanner.Text()) {
			ev, ok := hue.DecodeEvent(raw)
			if !ok {
				continue
			}
			i.cache.Add(raw, ev)
			i.applier.ApplyEvent(ev)
			if i.publisher != nil {
				if err := i.publisher.PublishEvent(ev); err != nil {
					i.logger.Warn("event republish failed", "error", err)
				}
			}
			i.bus.Publish(raw)
		}
	}
	return scanner.Err()
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
