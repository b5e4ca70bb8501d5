// Package stream moves bridge events from the upstream event stream to
// every consumer in the process.
//
// Three pieces cooperate:
//   - EventCache keeps a bounded-age replay window of received events so
//     late joiners and the sensor store can catch up.
//   - Bus broadcasts events to any number of subscribers without ever
//     blocking the producer; a slow subscriber is told it lagged and
//     resumes from the oldest retained message.
//   - Ingestor owns the upstream connection: it reads frames, decodes
//     updates, and fans them out to the cache, the sensor store, an
//     optional publisher and the bus, reconnecting forever on failure.
package stream
