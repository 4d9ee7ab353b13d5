// Package sockutil wraps crushsimd's Unix socket lifecycle: listening
// with the right permissions and, per platform, reading the connecting
// peer's UID (PeerUID). cmd/crushsimd's accept loop does not call PeerUID.
// Mirrors internal/controlplane/api/socket_unix.go's listenUnix.
package sockutil

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// Listen opens a Unix socket at path, removing any stale socket left
// behind by a previous run and restricting permissions to owner+group.
func Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sockutil: create socket directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("sockutil: remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("sockutil: listen unix: %w", err)
	}
	if err := os.Chmod(path, 0o660); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("sockutil: set socket permissions: %w", err)
	}
	return ln, nil
}

// PeerUID reports the effective UID of the process on the other end of
// conn, when the platform exposes it. ok is false on platforms without a
// peer-credential mechanism (see sockutil_stub.go).
func PeerUID(conn net.Conn) (uid uint32, ok bool) {
	unixConn, isUnix := conn.(*net.UnixConn)
	if !isUnix {
		return 0, false
	}
	return peerUID(unixConn)
}
