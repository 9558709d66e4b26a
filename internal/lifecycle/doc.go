// Package lifecycle owns the in-memory active session and every transition of it.
//
// # Architecture boundaries
//
// Manager serializes create, extend, clear, restore, expire, and resync behind one mutex
// and persists through session.Store inside that critical section. It drives two
// non-blocking ports: a [Scheduler] (the expiry watchdog) and an [Installer] (the request
// authorizer). Transitions are reported back as [Change] values so callers can publish
// events and navigate after the lock is released.
//
// # What this package must NOT do
//
//   - Publish events or navigate while holding the lock.
//   - Block inside Scheduler or Installer calls.
//   - Keep both kinds active at once.
package lifecycle
