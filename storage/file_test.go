package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	exerciseBackend(t, f)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePerm {
		t.Fatalf("expected perm %o, got %o", filePerm, perm)
	}
}

func TestFilePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	first, err := NewFile(path)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	if err := first.Apply(ctx, Batch{Set: map[string]string{"admin_login_time": "1700000000000"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	_ = first.Close()

	second, err := NewFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := second.Get(ctx, "admin_login_time")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["admin_login_time"] != "1700000000000" {
		t.Fatalf("value lost across instances: %v", got)
	}
}

func TestFileUnparseableDocumentReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	got, err := f.Get(context.Background(), "admin_token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}

	if err := f.Apply(context.Background(), Batch{Set: map[string]string{"k": "v"}}); err != nil {
		t.Fatalf("apply over corrupt document: %v", err)
	}
	got, _ = f.Get(context.Background(), "k")
	if got["k"] != "v" {
		t.Fatal("expected document to be replaced")
	}
}

func TestWatchFileReportsExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}

	var calls atomic.Int32
	changed := make(chan struct{}, 4)
	w, err := WatchFile(f, 10*time.Millisecond, func() {
		calls.Add(1)
		select {
		case changed <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	other, err := NewFile(path)
	if err != nil {
		t.Fatalf("second handle: %v", err)
	}
	if err := other.Apply(context.Background(), Batch{Set: map[string]string{"user_email": "a@b.c"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}
}

func TestWatchFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(filepath.Join(dir, "session.json"))
	if err != nil {
		t.Fatalf("new file: %v", err)
	}

	changed := make(chan struct{}, 1)
	w, err := WatchFile(f, 10*time.Millisecond, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case <-changed:
		t.Fatal("sibling write must not trigger a change")
	case <-time.After(200 * time.Millisecond):
	}
}
