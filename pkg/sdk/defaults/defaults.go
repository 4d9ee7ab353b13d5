// Package defaults centralizes crushsimd's filesystem and socket
// defaults — the platform-specific data root and the per-instance socket
// path under it that a daemon listens on. A
// single machine can run more than one named instance (e.g. one per
// scenario under test); InstanceSocketPath derives a stable, collision-
// resistant path per name the same way the teacher derives a per-network
// port offset.
package defaults

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	defaultLinuxDataRoot  = "/var/lib/crushsimd/instances"
	defaultDarwinDataRoot = "Library/Application Support/crushsimd/instances"

	// socketOffsetRange is 800: FNV-1a hash modulus for the per-instance
	// socket suffix, wide enough to keep collisions unlikely for any
	// reasonable number of concurrently running named instances.
	socketOffsetRange = 800
)

// DataRoot is the base directory InstanceSocketPath places crushsimd
// instance sockets under.
func DataRoot() string {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return defaultLinuxDataRoot
		}
		return filepath.Join(home, defaultDarwinDataRoot)
	}
	return defaultLinuxDataRoot
}

// EnsureDataRoot creates the data root directory if it doesn't exist.
func EnsureDataRoot(dataRoot string) error {
	if dataRoot == "" {
		dataRoot = DataRoot()
	}
	if err := os.MkdirAll(dataRoot, 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}
	return nil
}

// NormalizeInstance trims and defaults an instance name, mirroring
// NormalizeNetwork's "default" fallback so an unnamed instance still gets
// a stable path.
func NormalizeInstance(instance string) string {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return "default"
	}
	return instance
}

// InstanceSocketPath derives a per-instance Unix socket path under dir
// (DataRoot if dir is empty): the "default" instance gets a fixed name,
// every other instance gets a name plus a short hash suffix so two
// differently-named instances never collide even if truncated.
func InstanceSocketPath(dir, instance string) string {
	if dir == "" {
		dir = DataRoot()
	}
	n := NormalizeInstance(instance)
	if n == "default" {
		return filepath.Join(dir, "default.sock")
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%d.sock", n, hashMod(n, socketOffsetRange)))
}

func hashMod(s string, m uint32) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32() % m
}
