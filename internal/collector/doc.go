// Package collector implements the collection scheduler: the fetch, stamp,
// cache and commit pipeline for one device.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every face callback and timer only enqueues an Event. Collector.Run
// dequeues events one at a time and is the only goroutine that touches
// the sequence counter, the record cache, the cycle state and the
// journal. No two pipeline steps run concurrently.
//
// Event Processing Flow:
//  1. Run registers the identity prefix with the forwarder.
//  2. A successful registration starts the first cycle at once.
//  3. A tick expresses a fresh-only Interest for the device reading.
//  4. On Data the record is built, cached, journalled and announced to
//     the repo. On Nack or timeout the failure is logged.
//  5. Either way a one-shot timer for the interval enqueues the next tick.
//
// Pull requests for cached records are answered between steps, so the
// collector stays responsive while a reading or command is outstanding.
// Announce outcomes are logged and journalled; they never gate the next
// tick.
//
// Registration failure ends Run with ErrRegistration. Fetch, build and
// commit failures end only the cycle they occur in.
package collector
