package domain

import "time"

// EventKind distinguishes tracking event types.
type EventKind string

const (
	EventImpression EventKind = "impression"
	EventConversion EventKind = "conversion"
)

// Valid reports whether the kind is one of the known event kinds.
func (k EventKind) Valid() bool {
	return k == EventImpression || k == EventConversion
}

// TrackingEvent is a single impression or conversion handed to the
// analytics sink. The engine constructs it and forwards it immediately;
// it is never retained.
type TrackingEvent struct {
	ID         string
	Kind       EventKind
	TestID     string
	VariantID  string
	VisitorID  string
	Timestamp  time.Time
	Properties map[string]string
}

// EventName returns the sink-facing event name, e.g. "ab_impression".
func (e *TrackingEvent) EventName() string {
	return "ab_" + string(e.Kind)
}
