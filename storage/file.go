package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const filePerm = 0o600

// File keeps every pair in one JSON object on disk. Each [File.Apply] rewrites the
// document through a temporary file and a rename, so a concurrent reader sees either the
// old or the new document.
//
// An unparseable document reads as empty; the next Apply replaces it.
type File struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// NewFile returns a backend stored at path. The parent directory is created if needed;
// the file itself is created lazily on first write.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("file storage requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &File{path: path}, nil
}

// Path returns the document location.
func (f *File) Path() string {
	return f.path
}

// Get reads the document and returns the present subset of keys.
func (f *File) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	doc, err := f.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Apply loads the document, applies the batch, and replaces the file.
func (f *File) Apply(ctx context.Context, batch Batch) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if batch.Empty() {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	doc, err := f.load()
	if err != nil {
		return err
	}
	for _, k := range batch.Delete {
		delete(doc, k)
	}
	for k, v := range batch.Set {
		doc[k] = v
	}
	return f.store(doc)
}

// Close releases the backend. The file is left in place.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *File) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	doc := map[string]string{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]string{}, nil
	}
	return doc, nil
}

func (f *File) store(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
