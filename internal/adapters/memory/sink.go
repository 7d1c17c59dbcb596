package memory

import (
	"context"
	"sync"
)

// CapturedEvent is one event recorded by the Sink.
type CapturedEvent struct {
	Name       string
	Properties map[string]string
}

// Sink is an in-memory analytics sink that records every captured
// event, used in tests and as the default when no collector is
// configured.
type Sink struct {
	mu     sync.Mutex
	events []CapturedEvent

	// Err, when set, is returned from every Capture call.
	Err error
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Capture(ctx context.Context, eventName string, properties map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	props := make(map[string]string, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	s.events = append(s.events, CapturedEvent{Name: eventName, Properties: props})
	return nil
}

// Events returns a copy of all captured events.
func (s *Sink) Events() []CapturedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CapturedEvent, len(s.events))
	copy(out, s.events)
	return out
}
