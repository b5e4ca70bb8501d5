// Package api implements the HTTP and WebSocket surface of huewatch.
//
// This package provides:
//   - REST endpoints for composite sensors, display names and 24h graphs
//   - A line-delimited event stream with replay of the retained window
//   - WebSocket hub for real-time event broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between dashboard clients and the sensor store. Reads
// come from the TTL-cached store; live updates flow from the ingestion loop
// through the broadcast bus to stream and WebSocket clients. The first
// request to any streaming endpoint lazily starts ingestion, so a process
// serving only REST reads never holds a bridge stream open.
//
// # Graceful Degradation
//
// The server operates without the recorder database (graph endpoints return
// 503) and without MQTT; only the bridge connection is essential.
package api
