// Package eventbus defines the publish/subscribe port connecting the
// coordination core's subsystems.
package eventbus

import "context"

// Handler processes an event received from the bus.
type Handler func(ctx context.Context, subject string, data []byte) error

// Bus is the port interface for emitting and subscribing to events. The
// default implementation is in-process; a NATS adapter serves shells that
// run out of process.
type Bus interface {
	// Publish sends an event to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for events on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Close shuts the bus down after delivering already-queued events.
	Close() error
}

// Subject constants for the coordination event protocol.
const (
	SubjectTaskCreated   = "tasks.created"
	SubjectTaskAssigned  = "tasks.assigned"
	SubjectTaskStarted   = "tasks.started"
	SubjectTaskProgress  = "tasks.progress"
	SubjectTaskCompleted = "tasks.completed"

	SubjectSessionStarted = "sessions.started"
	SubjectSessionExited  = "sessions.exited"

	SubjectScheduleFired = "schedules.fired"
)
