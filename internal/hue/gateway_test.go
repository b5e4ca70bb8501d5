package hue

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huewatch/core/internal/infrastructure/config"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc, cfg config.GatewayConfig) (*Gateway, *[]time.Duration) {
	t.Helper()
	client := newTestClient(t, handler)
	gw := NewGateway(client, cfg)

	var mu sync.Mutex
	sleeps := &[]time.Duration{}
	gw.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		*sleeps = append(*sleeps, d)
		mu.Unlock()
		return nil
	}
	return gw, sleeps
}

func TestGateway_RetriesWithQuadraticBackoff(t *testing.T) {
	var calls atomic.Int32
	gw, sleeps := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"errors":[],"data":[]}`))
	}, config.GatewayConfig{MaxInFlight: 3, MaxRetries: 5})

	if _, err := gw.Devices(context.Background()); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}

	want := []time.Duration{
		100 * time.Millisecond,
		400 * time.Millisecond,
		900 * time.Millisecond,
	}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected %d retries, got %d", len(want), len(*sleeps))
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("retry %d: delay %v, want %v", i+1, (*sleeps)[i], d)
		}
	}
}

func TestGateway_ExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, config.GatewayConfig{MaxInFlight: 3, MaxRetries: 5})

	_, err := gw.Devices(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	// Initial attempt plus five retries.
	if got := calls.Load(); got != 6 {
		t.Errorf("expected 6 attempts, got %d", got)
	}
}

func TestGateway_BoundsInFlightRequests(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})

	gw, _ := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		w.Write([]byte(`{"errors":[],"data":[]}`))
	}, config.GatewayConfig{MaxInFlight: 2, MaxRetries: 0})

	var wg sync.WaitGroup
	for n := 0; n < 6; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gw.Devices(context.Background()) //nolint:errcheck // Only concurrency is under test
		}()
	}

	// Give the goroutines time to pile up against the permit.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak in-flight %d exceeds limit 2", got)
	}
}

func TestGateway_FetchSensorDataJoinsFourQueries(t *testing.T) {
	paths := make(map[string]int)
	var mu sync.Mutex

	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path]++
		mu.Unlock()
		switch r.URL.Path {
		case "/clip/v2/resource/motion":
			w.Write([]byte(`{"errors":[],"data":[{"id":"mot-1","owner":{"rid":"dev-1","rtype":"device"},"motion":{"motion_report":{"motion":true,"changed":"2025-06-01T12:00:00Z"}}}]}`))
		case "/clip/v2/resource/device":
			w.Write([]byte(`{"errors":[],"data":[{"id":"dev-1","metadata":{"name":"Hall"}}]}`))
		default:
			w.Write([]byte(`{"errors":[],"data":[]}`))
		}
	}, config.GatewayConfig{MaxInFlight: 3, MaxRetries: 0})

	data, err := gw.FetchSensorData(context.Background())
	if err != nil {
		t.Fatalf("FetchSensorData failed: %v", err)
	}

	if len(data.Motions) != 1 || len(data.Devices) != 1 {
		t.Errorf("unexpected data: %d motions, %d devices", len(data.Motions), len(data.Devices))
	}

	mu.Lock()
	defer mu.Unlock()
	for _, p := range []string{
		"/clip/v2/resource/motion",
		"/clip/v2/resource/temperature",
		"/clip/v2/resource/light_level",
		"/clip/v2/resource/device",
	} {
		if paths[p] != 1 {
			t.Errorf("path %s fetched %d times, want 1", p, paths[p])
		}
	}
}

func TestGateway_FetchSensorDataRetriesWholeBatch(t *testing.T) {
	var deviceCalls atomic.Int32
	gw, sleeps := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/clip/v2/resource/device" {
			if deviceCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}
		w.Write([]byte(`{"errors":[],"data":[]}`))
	}, config.GatewayConfig{MaxInFlight: 3, MaxRetries: 2})

	if _, err := gw.FetchSensorData(context.Background()); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(*sleeps) != 1 {
		t.Errorf("expected 1 retry of the whole batch, got %d", len(*sleeps))
	}
	if deviceCalls.Load() != 2 {
		t.Errorf("expected device query twice, got %d", deviceCalls.Load())
	}
}

func TestGateway_NameMap(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clip/v2/resource/device":
			w.Write([]byte(`{"errors":[],"data":[
				{"id":"dev-1","metadata":{"name":"Hall sensor"},
				 "services":[{"rid":"mot-1","rtype":"motion"},{"rid":"tmp-1","rtype":"temperature"}]}
			]}`))
		case "/clip/v2/resource/room":
			w.Write([]byte(`{"errors":[],"data":[
				{"id":"room-1","metadata":{"name":"Hallway"},"services":[{"rid":"grp-1","rtype":"grouped_light"}]}
			]}`))
		case "/clip/v2/resource/bridge_home":
			w.Write([]byte(`{"errors":[],"data":[{"id":"home-1","services":[{"rid":"grp-0","rtype":"grouped_light"}]}]}`))
		case "/clip/v2/resource/light":
			w.Write([]byte(`{"errors":[],"data":[{"id":"lig-1","metadata":{"name":"Desk lamp"}}]}`))
		default:
			w.Write([]byte(`{"errors":[],"data":[]}`))
		}
	}, config.GatewayConfig{MaxInFlight: 3, MaxRetries: 0})

	names, err := gw.NameMap(context.Background())
	if err != nil {
		t.Fatalf("NameMap failed: %v", err)
	}

	want := map[string]string{
		"dev-1":  "Hall sensor",
		"mot-1":  "Hall sensor",
		"tmp-1":  "Hall sensor",
		"room-1": "Hallway",
		"grp-1":  "Hallway",
		"home-1": "Bridge Home",
		"grp-0":  "Bridge Home",
		"lig-1":  "Desk lamp",
	}
	for id, name := range want {
		if got := names[id]; got != name {
			t.Errorf("names[%q] = %q, want %q", id, got, name)
		}
	}
}

func TestGateway_ContextCancelStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, config.GatewayConfig{MaxInFlight: 1, MaxRetries: 10})

	gw.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := gw.Devices(ctx)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Error("cancellation must not be reported as retry exhaustion")
	}
}
