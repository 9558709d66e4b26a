// Package internal holds the parts of goSession that callers must not depend on.
//
// # Sub-packages
//
//   - lifecycle: the single owner of the active session and every transition
//   - watchdog: the restartable expiry check loop
//   - cmd: the gosession command tree
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
