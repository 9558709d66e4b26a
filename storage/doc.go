// Package storage provides the durable key-value backends that hold persisted session
// records and credential payloads.
//
// # Backends
//
//   - [Memory]: process-local map, used by tests and ephemeral clients.
//   - [File]: a single JSON document replaced atomically on every batch.
//   - [Redis]: go-redis UniversalClient with a key prefix; batches run in MULTI/EXEC.
//   - [SQLite]: a single kv table; batches run in one transaction.
//   - [Sealed]: wraps any backend and encrypts values at rest.
//
// Every backend applies a [Batch] atomically from the perspective of readers that go
// through the same backend value.
//
// # Architecture boundaries
//
// This package moves opaque strings. It does NOT know session key names, parse session
// JSON, or decide what corruption means; that belongs to the session package.
//
// # What this package must NOT do
//
//   - Import goSession, session, or internal packages.
//   - Log values (they carry credentials).
package storage
