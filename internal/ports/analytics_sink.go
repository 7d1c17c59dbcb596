package ports

import "context"

// AnalyticsSink receives tracking events for delivery to an external
// collector. Capture is best-effort: the engine never inspects the
// error beyond logging it, and implementations must not block the
// caller's critical path.
type AnalyticsSink interface {
	Capture(ctx context.Context, eventName string, properties map[string]string) error
}

// SinkFunc adapts a function to the AnalyticsSink interface.
type SinkFunc func(ctx context.Context, eventName string, properties map[string]string) error

func (f SinkFunc) Capture(ctx context.Context, eventName string, properties map[string]string) error {
	return f(ctx, eventName, properties)
}
