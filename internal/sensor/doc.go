// Package sensor holds the composite sensor model and the state store that
// serves it.
//
// A composite sensor is the per-device join of the bridge's separate motion,
// temperature and light level services, carrying a short in-memory history
// window per capability. The package provides:
//   - Building composites from a consistent bulk fetch (BuildComposite)
//   - Applying live stream events to existing composites (Apply)
//   - A TTL-cached Store that backfills replayed events over both cache
//     hits and fresh fetches
//   - A read-only reader for 24-hour graphs from the legacy recorder
//     database (GraphReader)
//
// All returned composites are deep copies; callers may mutate them freely.
package sensor
