package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agentforge"

// Metrics holds the coordination core's metric instruments.
type Metrics struct {
	TasksCreated   metric.Int64Counter
	TasksAssigned  metric.Int64Counter
	TasksCompleted metric.Int64Counter
	TasksFailed    metric.Int64Counter
	TaskDuration   metric.Float64Histogram
	Tokens         metric.Int64Counter
	SessionsActive metric.Int64UpDownCounter
	ScheduleFires  metric.Int64Counter
	QueueDepth     metric.Int64UpDownCounter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksCreated, err = meter.Int64Counter("agentforge.tasks.created",
		metric.WithDescription("Tasks created"))
	if err != nil {
		return nil, err
	}

	m.TasksAssigned, err = meter.Int64Counter("agentforge.tasks.assigned",
		metric.WithDescription("Tasks routed to an agent"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("agentforge.tasks.completed",
		metric.WithDescription("Tasks completed successfully"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("agentforge.tasks.failed",
		metric.WithDescription("Tasks that finished in failure"))
	if err != nil {
		return nil, err
	}

	m.TaskDuration, err = meter.Float64Histogram("agentforge.task.duration_seconds",
		metric.WithDescription("Task execution duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.Tokens, err = meter.Int64Counter("agentforge.tokens",
		metric.WithDescription("Tokens consumed across executions"))
	if err != nil {
		return nil, err
	}

	m.SessionsActive, err = meter.Int64UpDownCounter("agentforge.sessions.active",
		metric.WithDescription("Live interactive sessions"))
	if err != nil {
		return nil, err
	}

	m.ScheduleFires, err = meter.Int64Counter("agentforge.schedules.fired",
		metric.WithDescription("Recurring schedules fired"))
	if err != nil {
		return nil, err
	}

	m.QueueDepth, err = meter.Int64UpDownCounter("agentforge.executor.queue_depth",
		metric.WithDescription("Pending team executor operations"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
