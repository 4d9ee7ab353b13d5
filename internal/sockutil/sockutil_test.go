package sockutil

import (
	"path/filepath"
	"testing"
)

func TestListenCreatesSocketInNestedDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "crushsimd.sock")

	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	if ln.Addr().String() != path {
		t.Errorf("listener addr = %q, want %q", ln.Addr().String(), path)
	}
}

func TestListenRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crushsimd.sock")

	first, err := Listen(path)
	if err != nil {
		t.Fatalf("first Listen: %v", err)
	}
	first.Close()

	second, err := Listen(path)
	if err != nil {
		t.Fatalf("second Listen after stale socket: %v", err)
	}
	second.Close()
}
