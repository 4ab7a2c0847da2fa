package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentforge"

// StartTaskSpan starts a span covering one task execution.
func StartTaskSpan(ctx context.Context, taskID, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task.execute",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("agent.id", agentID),
		),
	)
}

// StartTeamOpSpan starts a span for one serialized team backend call.
func StartTeamOpSpan(ctx context.Context, operation, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "team.operation",
		trace.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("model", model),
		),
	)
}
