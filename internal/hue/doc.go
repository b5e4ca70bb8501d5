// Package hue provides the client for the Hue bridge CLIP v2 API.
//
// It is split into three layers:
//
//   - Client: raw HTTPS request/response and event-stream operations against
//     the bridge. One method per resource collection, no retries, no gating.
//   - Gateway: the resilient wrapper every caller goes through. It bounds
//     concurrent outbound requests with a counting permit and retries
//     transient failures with quadratic backoff.
//   - Event decoding: server-sent-event frames are converted into a closed
//     set of typed event variants at the ingestion boundary, so downstream
//     code never probes raw JSON.
//
// The event stream deliberately bypasses the Gateway's permit: ingestion only
// consumes a long-lived stream and must never contend with request traffic.
package hue
