package session

import "errors"

var (
	// ErrCorrupt reports a persisted entry that could not be decoded. The entry has
	// already been purged when this error is returned.
	ErrCorrupt = errors.New("session storage corrupt")
	// ErrMissingCredentials reports a credential payload without its required fields.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrKindMismatch reports a record or payload written under the wrong kind.
	ErrKindMismatch = errors.New("session kind mismatch")
	// ErrInvalidRecord reports a record that violates its own invariants.
	ErrInvalidRecord = errors.New("invalid session record")
	// ErrUnknownKind reports a kind other than admin or user.
	ErrUnknownKind = errors.New("unknown session kind")
)
