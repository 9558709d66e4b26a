// Package goSession manages the client-side session of an application that serves two
// mutually exclusive principal kinds: an administrative operator (Admin) and a scoped
// end user acting for a client (User).
//
// A [Manager] built through [Builder.Build] owns session creation, restoration at start,
// expiry tracking with warnings, renewal, forced logout, and the credentials attached to
// outgoing requests. Manager methods are safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config], events,
// metrics, and navigation ports. Transition logic lives in internal/lifecycle, the expiry
// loop in internal/watchdog, the persisted model in session, and the key-value media in
// storage. The HTTP transport that attaches credentials lives in middleware and depends
// on this package, never the reverse.
//
// # What this package must NOT do
//
//   - Hold package-level session state; every Manager is independent.
//   - Publish events or navigate while the lifecycle lock is held.
//   - Log credential values.
package goSession
