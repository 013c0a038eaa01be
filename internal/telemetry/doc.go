// Package telemetry provides OpenTelemetry initialization and helpers
// for the minutes service and its worker.
//
// Traces, logs and metrics are exported over OTLP/HTTP to whatever
// collector OTEL_EXPORTER_OTLP_ENDPOINT points at.
package telemetry
