package services

import "context"

// EventSink receives domain events produced by the reminder engine. The
// production implementation is the webhook dispatcher's fan-out; tests
// and webhook-less deployments use NopSink. Emission is fire-and-forget:
// implementations must not let delivery failures surface back into the
// emitting operation.
type EventSink interface {
	Emit(ctx context.Context, eventType string, data map[string]any, userID int64)
}

// NopSink discards every event. It is the composition-time null
// implementation selected when webhook delivery is disabled.
type NopSink struct{}

// Emit implements EventSink by doing nothing.
func (NopSink) Emit(context.Context, string, map[string]any, int64) {}
