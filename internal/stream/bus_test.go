package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()

	bus.Publish(json.RawMessage(`"one"`))
	bus.Publish(json.RawMessage(`"two"`))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, want := range []string{`"one"`, `"two"`} {
		msg, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if string(msg) != want {
			t.Errorf("got %s, want %s", msg, want)
		}
	}
}

func TestBus_SubscriberMissesEarlierMessages(t *testing.T) {
	bus := NewBus(10)
	bus.Publish(json.RawMessage(`"before"`))

	sub := bus.Subscribe()
	bus.Publish(json.RawMessage(`"after"`))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if string(msg) != `"after"` {
		t.Errorf("expected only post-subscribe messages, got %s", msg)
	}
}

func TestBus_SlowSubscriberLagsAndRecovers(t *testing.T) {
	bus := NewBus(3)
	sub := bus.Subscribe()

	// Overflow the backlog: only the newest 3 survive.
	for i := 0; i < 10; i++ {
		bus.Publish(json.RawMessage(fmt.Sprintf("%d", i)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := sub.Next(ctx)
	if !errors.Is(err, ErrLagged) {
		t.Fatalf("expected ErrLagged, got %v", err)
	}

	// After the lag signal the subscriber resumes at the oldest retained.
	msg, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next after lag failed: %v", err)
	}
	if string(msg) != "7" {
		t.Errorf("expected oldest retained message 7, got %s", msg)
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus(1)
	_ = bus.Subscribe() // never reads

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(json.RawMessage(fmt.Sprintf("%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBus_NextBlocksUntilPublish(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()

	got := make(chan json.RawMessage, 1)
	go func() {
		msg, err := sub.Next(context.Background())
		if err == nil {
			got <- msg
		}
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Publish(json.RawMessage(`"wake"`))

	select {
	case msg := <-got:
		if string(msg) != `"wake"` {
			t.Errorf("got %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not wake on publish")
	}
}

func TestBus_CloseDrainsThenErrors(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()

	bus.Publish(json.RawMessage(`"last"`))
	bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("expected retained message before close error, got %v", err)
	}
	if string(msg) != `"last"` {
		t.Errorf("got %s", msg)
	}

	if _, err := sub.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestBus_NextHonoursContext(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := NewBus(10)
	bus.Close()
	bus.Publish(json.RawMessage(`"late"`)) // must not panic

	sub := bus.Subscribe()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
