package runlock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "run.lock")
	l := New(path)
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	if l.Path() != path {
		t.Errorf("path = %s", l.Path())
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	// Released lock can be reacquired.
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	_ = l.Release()
}

func TestReleaseWithoutAcquire(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "run.lock"))
	if err := l.Release(); err != nil {
		t.Errorf("release on unheld lock should be a no-op: %v", err)
	}
}

func TestAcquire_contended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	first := New(path)
	if err := first.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	second := New(path)
	if err := second.Acquire(); !errors.Is(err, ErrHeld) {
		t.Fatalf("err = %v, want ErrHeld", err)
	}

	if err := first.Release(); err != nil {
		t.Fatal(err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("lock should be free after release: %v", err)
	}
	_ = second.Release()
}
