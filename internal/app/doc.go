// Package app assembles the web service: it loads configuration, brings up
// logging and OpenTelemetry, wires the snapshot store and the suggestion
// engine into the HTTP router, and owns the server lifecycle from listen to
// graceful shutdown.
//
// The aggregation batch itself runs in a separate binary; this package only
// serves what the batch published.
package app
