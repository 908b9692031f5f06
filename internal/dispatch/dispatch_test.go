package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestBus(t *testing.T) (*Bus, *testLogger) {
	logger := &testLogger{}

	b, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}

	return b, logger
}

func TestBus_SyncSubscriber(t *testing.T) {
	b, _ := newTestBus(t)

	called := false
	b.Subscribe(TopicTick, "memory", func(e Event) error {
		called = true
		return nil
	})

	err := b.Publish(Event{Topic: TopicTick, Payload: 1})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("subscriber was not called")
	}
}

func TestBus_NoSubscribersIsNotAnError(t *testing.T) {
	b, _ := newTestBus(t)

	if err := b.Publish(Event{Topic: TopicAnomaly}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if b.HasSubscribers(TopicAnomaly) {
		t.Error("expected no subscribers")
	}
}

func TestBus_FanOutDeliversToAllSubscribers(t *testing.T) {
	b, _ := newTestBus(t)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		b.Subscribe(TopicTick, name, func(e Event) error {
			order = append(order, name)
			return nil
		})
	}

	if err := b.Publish(Event{Topic: TopicTick}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery %d: expected %q, got %q", i, want[i], order[i])
		}
	}
}

func TestBus_FailingSubscriberDoesNotBlockOthers(t *testing.T) {
	b, _ := newTestBus(t)

	b.Subscribe(TopicTick, "broken", func(e Event) error {
		return fmt.Errorf("disk full")
	})

	called := false
	b.Subscribe(TopicTick, "healthy", func(e Event) error {
		called = true
		return nil
	})

	err := b.Publish(Event{Topic: TopicTick})

	if err == nil {
		t.Error("expected joined error from broken subscriber")
	}
	if !called {
		t.Error("healthy subscriber was skipped")
	}
}

func TestBus_BufferedSubscriber(t *testing.T) {
	b, _ := newTestBus(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	b.Subscribe(TopicTick, "influx", func(e Event) error {
		processed.Add(1)
		wg.Done()
		return nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		if err := b.Publish(Event{Topic: TopicTick}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestBus_BufferedDropsWhenFull(t *testing.T) {
	b, _ := newTestBus(t)

	block := make(chan struct{})
	b.Subscribe(TopicTick, "slow", func(e Event) error {
		<-block
		return nil
	}, Buffered(2))

	// Fill the queue (2 items) + 1 being processed
	b.Publish(Event{Topic: TopicTick})
	b.Publish(Event{Topic: TopicTick})
	b.Publish(Event{Topic: TopicTick})

	// This one should be dropped
	err := b.Publish(Event{Topic: TopicTick})

	if err == nil {
		t.Error("expected error when queue is full")
	}

	close(block)
}

func TestBus_BufferedBlocking(t *testing.T) {
	b, _ := newTestBus(t)

	block := make(chan struct{})
	b.Subscribe(TopicTick, "stream", func(e Event) error {
		<-block
		return nil
	}, Buffered(1), Blocking())

	// First event starts processing, second fills the queue
	b.Publish(Event{Topic: TopicTick})
	b.Publish(Event{Topic: TopicTick})

	done := make(chan struct{})
	go func() {
		b.Publish(Event{Topic: TopicTick})
		close(done)
	}()

	select {
	case <-done:
		t.Error("publish should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}

	close(block)
}

func TestBus_LoggedSubscriber(t *testing.T) {
	b, logger := newTestBus(t)

	b.Subscribe(TopicMissionEnd, "report", func(e Event) error {
		return nil
	}, Logged())

	b.Publish(Event{Topic: TopicMissionEnd})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestBus_LoggedSubscriberError(t *testing.T) {
	b, logger := newTestBus(t)

	b.Subscribe(TopicTick, "flaky", func(e Event) error {
		return fmt.Errorf("test error")
	}, Logged())

	b.Publish(Event{Topic: TopicTick})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestBus_PublishStampsTimestamp(t *testing.T) {
	b, _ := newTestBus(t)

	var got time.Time
	b.Subscribe(TopicTick, "memory", func(e Event) error {
		got = e.Timestamp
		return nil
	})

	b.Publish(Event{Topic: TopicTick})

	if got.IsZero() {
		t.Error("expected timestamp to be stamped on publish")
	}
}
