package session

import (
	"fmt"
	"time"
)

// Kind names one of the two mutually exclusive principal kinds.
type Kind string

const (
	// KindAdmin is the administrative operator.
	KindAdmin Kind = "admin"
	// KindUser is the scoped end user (a client of the business).
	KindUser Kind = "user"
)

// Kinds lists every kind, Admin first. Restoration relies on this order.
var Kinds = [...]Kind{KindAdmin, KindUser}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindAdmin || k == KindUser
}

// Other returns the opposite kind.
func (k Kind) Other() Kind {
	if k == KindAdmin {
		return KindUser
	}
	return KindAdmin
}

func (k Kind) String() string {
	return string(k)
}

// Record is the persisted metadata of one session. It never carries credentials.
//
// LoginTime and ExpiresAt are epoch milliseconds. SessionID and LoginTime are fixed at
// creation; only ExpiresAt moves, and only through an extension.
type Record struct {
	SessionID string
	Kind      Kind
	LoginTime int64
	ExpiresAt int64
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidRecord)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	if r.LoginTime <= 0 {
		return fmt.Errorf("%w: login time must be positive", ErrInvalidRecord)
	}
	if r.ExpiresAt <= r.LoginTime {
		return fmt.Errorf("%w: expiry must be after login time", ErrInvalidRecord)
	}
	return nil
}

// Remaining returns the time left before expiry at now, or zero once expired.
func (r Record) Remaining(now time.Time) time.Duration {
	left := time.Duration(r.ExpiresAt-now.UnixMilli()) * time.Millisecond
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the record is expired at now.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.UnixMilli()
}

// LoginAt returns LoginTime as a time.Time.
func (r Record) LoginAt() time.Time {
	return time.UnixMilli(r.LoginTime)
}

// ExpiresAtTime returns ExpiresAt as a time.Time.
func (r Record) ExpiresAtTime() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}

// Entry is a record together with the credentials it authenticates with.
type Entry struct {
	Record      Record
	Credentials Credentials
}
