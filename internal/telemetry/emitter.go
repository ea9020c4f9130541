// Package telemetry defines the event shape and emitter interface used to
// ship request events to the observability backend.
package telemetry

import (
	"context"
	"time"
)

// Event is a single telemetry event. Metadata holds event-specific JSON.
type Event struct {
	UserID    string
	EventType string
	Source    string
	Metadata  []byte
	CreatedAt time.Time
}

// EventEmitter sends telemetry events. Implementations must be safe for
// concurrent use and best-effort; callers never fail a request on emit errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
