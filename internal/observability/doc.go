// Package observability wires structured logging, Prometheus metrics, and
// OpenTelemetry tracing into the ReAct engine, session manager, and tool
// registry.
//
// Logging is built on log/slog with request/session correlation pulled from
// context. Metrics track rate limiter pressure, active sessions, tool
// outcomes, and step counts by type. Tracing installs a process-local
// TracerProvider with no exporter attached; the engine opens one span per
// run, and tool executions get no span of their own.
package observability
