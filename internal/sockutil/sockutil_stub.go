//go:build !linux && !darwin

package sockutil

import "net"

func peerUID(conn *net.UnixConn) (uint32, bool) {
	return 0, false
}
