// Package otel binds a session Manager's metrics to OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per lifecycle counter
// (gosession_session_created_total, gosession_unauthorized_total, and the rest) and one
// Int64ObservableGauge per request latency bucket. A [goSession.Manager] also gets
// gosession_active, with a "kind" attribute of admin or user, and
// gosession_time_remaining_seconds. A single callback reads the Manager on each
// collection cycle, so the values are never older than the last collection.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate session state.
package otel
