package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of every course-watch span.
const TracerName = "course-watch"

// GetTracer returns the global tracer for creating spans.
func GetTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// OrDefault returns t, or the global tracer when t is nil.
func OrDefault(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}
	return GetTracer()
}

// RecordError marks span as failed with err.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
