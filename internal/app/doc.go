// Package app wires the application together: configuration loading,
// logging and telemetry, the object store and cache stack, the
// aggregation pipeline, and the HTTP server with graceful shutdown.
//
// Components are assembled once at startup via dependency injection;
// nothing in this package holds global state. The one-shot CLI and the
// HTTP server share the same NewPipeline construction path so both
// entry points run identical aggregation semantics.
//
// # Shutdown
//
// The server handles SIGINT and SIGTERM: active requests drain within
// the configured timeout, the websocket hub stops, telemetry flushes,
// and the log file closes.
package app
