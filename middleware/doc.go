// Package middleware attaches session credentials to outgoing HTTP requests and guards
// local handlers by the active principal.
//
// # Components
//
//   - [Transport] sets the installed credential headers on each request and reports 401
//     responses back to the session manager.
//   - [NewClient] wraps an *http.Client with a [Transport].
//   - [Require] rejects handler calls when no session, or the wrong principal, is active.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Manager calls. It never decides whether a
// session is valid; the Manager owns every transition, including the clear after a 401.
//
// # What this package must NOT do
//
//   - Read or write session storage.
//   - Retry a request that was answered with 401.
//   - Parse access tokens (Manager.Identity does that).
package middleware
