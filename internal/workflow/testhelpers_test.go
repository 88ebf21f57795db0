package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"podscribe/internal/notifications"
)

// stubNotifier records published events for assertions. The workflow
// publishes from its background goroutine, so access is mutex-guarded.
type stubNotifier struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, capturedEvent{event: event, payload: payload})
	return nil
}

func (s *stubNotifier) TestNotification(context.Context) error { return nil }

func (s *stubNotifier) count(event notifications.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, captured := range s.events {
		if captured.event == event {
			total++
		}
	}
	return total
}

func (s *stubNotifier) payloadFor(event notifications.Event) (notifications.Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, captured := range s.events {
		if captured.event == event {
			return captured.payload, true
		}
	}
	return nil, false
}

// waitFor polls until the event shows up or the deadline expires.
func (s *stubNotifier) waitFor(t testing.TB, event notifications.Event) notifications.Payload {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		if payload, ok := s.payloadFor(event); ok {
			return payload
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s notification", event)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
