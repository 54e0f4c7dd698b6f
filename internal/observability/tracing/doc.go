// Package tracing provides the OpenTelemetry tracer used by the sync and
// dispatch use cases.
//
// Spans are created through the global tracer provider. Without an
// exporter configured they are no-ops; tests install an in-memory provider
// and inject its tracer.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "schedulesync.SyncAllSchedules")
//	defer span.End()
//	if err := run(ctx); err != nil {
//	    tracing.RecordError(span, err)
//	}
package tracing
