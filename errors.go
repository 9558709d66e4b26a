package goSession

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrUnauthorized is wrapped by every UnauthorizedError.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingCredentials reports a login payload without its required fields.
	ErrMissingCredentials = session.ErrMissingCredentials
	// ErrSessionExpired is the cause carried by expiry events.
	ErrSessionExpired = errors.New("session expired")
	// ErrManagerClosed is returned by operations on a closed Manager.
	ErrManagerClosed = errors.New("session manager closed")
	// ErrNotAuthenticated is returned by operations that need an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrWatchRequiresFile is returned by Build when file watching is enabled on a
	// backend that is not a file.
	ErrWatchRequiresFile = errors.New("file watching requires a file backend")
)

// UnauthorizedError is returned for a 401 response. When Cleared is true the session
// named by Kind and SessionID was active and has already been cleared; otherwise they
// describe the credentials the request carried, if any.
type UnauthorizedError struct {
	StatusCode int
	Kind       session.Kind
	SessionID  string
	Cleared    bool
}

func (e *UnauthorizedError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%v: status %d", ErrUnauthorized, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d for %s session", ErrUnauthorized, e.StatusCode, e.Kind)
}

func (e *UnauthorizedError) Unwrap() error {
	return ErrUnauthorized
}
