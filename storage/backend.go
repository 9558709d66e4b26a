package storage

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable wraps any I/O failure of the underlying medium.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage closed")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Backend is a flat string key-value medium.
//
// Get omits keys that are not present. Apply removes every key in Delete and then writes
// every pair in Set as one unit; a reader never observes half of a batch.
type Backend interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Apply(ctx context.Context, batch Batch) error
	Close() error
}

// Batch is a set of writes and deletes applied together.
type Batch struct {
	Set    map[string]string
	Delete []string
}

// Empty reports whether the batch carries no operation.
func (b Batch) Empty() bool {
	return len(b.Set) == 0 && len(b.Delete) == 0
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
