// Package watchdog runs the periodic expiry check for the active session.
//
// A Watchdog owns at most one ticking goroutine. It does not read the session itself; each
// tick asks a [Checker] for the current state, so a tick never acts on a stale copy.
package watchdog
