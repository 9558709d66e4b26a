// Package session defines the persisted session model and the [Store] that maps it onto
// a flat key-value [storage.Backend].
//
// # Storage layout
//
// Each principal kind owns a fixed set of keys. Admin sessions use admin_token,
// admin_session, and admin_login_time. User sessions use user_data, user_session, and
// user_login_time, plus the legacy mirrors user_email, client_data, and client_email that
// older consumers still read. client_email holds the client's address and is only
// written when the client has one. Timestamps are integer epoch milliseconds.
//
// # Failure model
//
// Reads fail closed: malformed JSON, a missing required field, a kind mismatch, or a
// record whose expiry is not after its login time purges every key of that kind and
// reports [ErrCorrupt]. Callers treat that as "no session".
//
// # Architecture boundaries
//
// This package owns the model and its encoding. It does NOT track which session is
// active, start timers, or touch HTTP; those belong to the lifecycle manager and the
// middleware package.
//
// # What this package must NOT do
//
//   - Import goSession or internal packages (no upward imports).
//   - Log or format credential values in clear.
package session
