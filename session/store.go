package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/storage"
)

// Store persists at most one session per kind on a [storage.Backend].
//
// Store holds no state of its own; every call goes to the backend. Callers serialize
// transitions themselves.
type Store struct {
	backend storage.Backend
}

// NewStore wraps backend.
func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// Backend returns the underlying backend.
func (s *Store) Backend() storage.Backend {
	return s.backend
}

// Read loads the session of kind.
//
// It returns (nil, nil) when no session of kind is stored. An entry that cannot be decoded
// is purged and reported as ErrCorrupt. Backend failures are wrapped in
// storage.ErrUnavailable unless the backend already did so.
func (s *Store) Read(ctx context.Context, kind Kind) (*Entry, error) {
	entry, err := s.Peek(ctx, kind)
	if err == nil || !errors.Is(err, ErrCorrupt) {
		return entry, err
	}
	if purgeErr := s.Clear(ctx, kind); purgeErr != nil {
		return nil, errors.Join(err, purgeErr)
	}
	return nil, err
}

// Peek is Read without the purge: an undecodable entry is reported as ErrCorrupt and
// left in storage.
func (s *Store) Peek(ctx context.Context, kind Kind) (*Entry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	values, err := s.backend.Get(ctx, Keys(kind)...)
	if err != nil {
		return nil, wrapBackend(err)
	}

	rawRecord, hasRecord := values[recordKey(kind)]
	rawPayload, hasPayload := values[payloadKey(kind)]
	if !hasRecord && !hasPayload {
		return nil, nil
	}

	entry, cause := decodeEntry(kind, rawRecord, hasRecord, rawPayload, hasPayload)
	if cause != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, kind, cause)
	}
	return entry, nil
}

func decodeEntry(kind Kind, rawRecord string, hasRecord bool, rawPayload string, hasPayload bool) (*Entry, error) {
	if !hasRecord {
		return nil, fmt.Errorf("%w: %s", errMissingField, recordKey(kind))
	}
	if !hasPayload {
		return nil, fmt.Errorf("%w: %s", errMissingField, payloadKey(kind))
	}

	rec, err := DecodeRecord(kind, rawRecord)
	if err != nil {
		return nil, err
	}
	creds, err := decodePayload(kind, rawPayload)
	if err != nil {
		return nil, err
	}
	return &Entry{Record: rec, Credentials: creds}, nil
}

// Write replaces every key of kind with the given session in one batch.
func (s *Store) Write(ctx context.Context, kind Kind, rec Record, creds Credentials) error {
	if rec.Kind != kind {
		return fmt.Errorf("%w: record is %s, expected %s", ErrKindMismatch, rec.Kind, kind)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := ValidateFor(kind, creds); err != nil {
		return err
	}

	values, err := encodeEntry(rec, creds)
	if err != nil {
		return err
	}

	// Delete first so a previous write's optional keys never linger.
	if err := s.backend.Apply(ctx, storage.Batch{Set: values, Delete: Keys(kind)}); err != nil {
		return wrapBackend(err)
	}
	return nil
}

// Clear deletes every key of kind, legacy mirrors included. Clearing an absent session
// succeeds.
func (s *Store) Clear(ctx context.Context, kind Kind) error {
	keys := Keys(kind)
	if keys == nil {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := s.backend.Apply(ctx, storage.Batch{Delete: keys}); err != nil {
		return wrapBackend(err)
	}
	return nil
}

// ClearAll deletes the keys of both kinds in one batch.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.backend.Apply(ctx, storage.Batch{Delete: AllKeys()}); err != nil {
		return wrapBackend(err)
	}
	return nil
}

func wrapBackend(err error) error {
	if errors.Is(err, storage.ErrUnavailable) || errors.Is(err, storage.ErrClosed) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
}
