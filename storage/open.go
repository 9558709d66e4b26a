package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Driver names accepted by [Open].
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the file or SQLite database location.
	Path string

	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Passphrase, when set, wraps the backend in [Sealed].
	Passphrase string
}

// Open builds the backend named by opts.Driver. Backends created here own their
// connections and release them on Close.
func Open(ctx context.Context, opts Options) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverMemory:
		backend = NewMemory()
	case DriverFile:
		backend, err = NewFile(opts.Path)
	case DriverSQLite:
		backend, err = OpenSQLite(ctx, opts.Path)
	case DriverRedis:
		backend, err = openRedis(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.Passphrase == "" {
		return backend, nil
	}

	sealed, err := OpenSealed(ctx, backend, opts.Passphrase)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return sealed, nil
}

func openRedis(ctx context.Context, opts Options) (*Redis, error) {
	if opts.RedisAddr == "" {
		return nil, fmt.Errorf("%w: redis address required", ErrUnavailable)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{opts.RedisAddr},
		Username: opts.RedisUsername,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	r := NewRedis(client, opts.RedisPrefix)
	r.owned = true
	if err := r.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return r, nil
}

// Unwrap returns the backend underneath a [Sealed] wrapper, or b itself.
func Unwrap(b Backend) Backend {
	if s, ok := b.(*Sealed); ok {
		return s.inner
	}
	return b
}
