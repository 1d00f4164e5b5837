// Package store provides SQLite-backed storage for the collector.
//
// The store keeps an append-only publication journal:
//   - records: every record the collector built, with a BLAKE3 digest of
//     its signed wire encoding
//   - commits: every insert command outcome reported for a record
//
// and, when configured, the device's sequence slot (sequences table) in
// place of the flat file ledger.
//
// # Database Configuration
//
//   - WAL mode: status readers do not block the collector
//   - synchronous=FULL: a committed sequence value survives power loss
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: a commit must refer to a journalled record
//
// Journal queries order by seq so output is stable.
package store
