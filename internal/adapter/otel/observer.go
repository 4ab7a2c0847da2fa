package otel

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/AgentForge/internal/port/eventbus"
)

// Observer folds coordination events into metric instruments. It rides the
// event bus rather than instrumenting each service, so telemetry stays out
// of the hot paths.
type Observer struct {
	metrics *Metrics
}

// NewObserver creates an event-driven metrics observer.
func NewObserver(m *Metrics) *Observer {
	return &Observer{metrics: m}
}

// Start subscribes the observer to every relevant subject. The returned
// function cancels all subscriptions.
func (o *Observer) Start(ctx context.Context, bus eventbus.Bus) (func(), error) {
	var stops []func()
	cancelAll := func() {
		for _, stop := range stops {
			stop()
		}
	}

	subjects := map[string]eventbus.Handler{
		eventbus.SubjectTaskCreated:    o.onTaskCreated,
		eventbus.SubjectTaskAssigned:   o.onTaskAssigned,
		eventbus.SubjectTaskCompleted:  o.onTaskCompleted,
		eventbus.SubjectSessionStarted: o.onSessionStarted,
		eventbus.SubjectSessionExited:  o.onSessionExited,
		eventbus.SubjectScheduleFired:  o.onScheduleFired,
	}
	for subject, handler := range subjects {
		stop, err := bus.Subscribe(ctx, subject, handler)
		if err != nil {
			cancelAll()
			return nil, err
		}
		stops = append(stops, stop)
	}
	return cancelAll, nil
}

func (o *Observer) onTaskCreated(ctx context.Context, _ string, _ []byte) error {
	o.metrics.TasksCreated.Add(ctx, 1)
	return nil
}

func (o *Observer) onTaskAssigned(ctx context.Context, _ string, data []byte) error {
	var p eventbus.TaskAssignedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	o.metrics.TasksAssigned.Add(ctx, 1, metric.WithAttributes(attribute.String("agent.id", p.AgentID)))
	return nil
}

func (o *Observer) onTaskCompleted(ctx context.Context, _ string, data []byte) error {
	var p eventbus.TaskCompletedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}

	attrs := metric.WithAttributes(attribute.String("agent.id", p.AgentID))
	if p.Success {
		o.metrics.TasksCompleted.Add(ctx, 1, attrs)
	} else {
		o.metrics.TasksFailed.Add(ctx, 1, attrs)
	}
	o.metrics.TaskDuration.Record(ctx, float64(p.DurationMs)/1000.0, attrs)
	if total := int64(p.TokensIn + p.TokensOut); total > 0 {
		o.metrics.Tokens.Add(ctx, total, attrs)
	}
	return nil
}

func (o *Observer) onSessionStarted(ctx context.Context, _ string, _ []byte) error {
	o.metrics.SessionsActive.Add(ctx, 1)
	return nil
}

func (o *Observer) onSessionExited(ctx context.Context, _ string, _ []byte) error {
	o.metrics.SessionsActive.Add(ctx, -1)
	return nil
}

func (o *Observer) onScheduleFired(ctx context.Context, _ string, _ []byte) error {
	o.metrics.ScheduleFires.Add(ctx, 1)
	return nil
}
