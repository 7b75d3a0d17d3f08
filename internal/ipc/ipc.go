// Package ipc carries the engine's command channel over a local Unix socket
// so the TUI and CLI commands can talk to a running daemon instead of
// opening the database themselves.
package ipc

import (
	"net"
	"os"
	"path/filepath"
	"time"
)

const dialTimeout = 500 * time.Millisecond

// SocketPath returns the socket path to use. An explicit path wins, then
// $AMMO_SOCKET, then $XDG_RUNTIME_DIR/ammo.sock, then the temp dir.
func SocketPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if s := os.Getenv("AMMO_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "ammo.sock")
	}
	return filepath.Join(os.TempDir(), "ammo.sock")
}

// IsRunning reports whether a daemon appears to be listening on path. It
// does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path, removing any stale socket first.
func Listen(path string) (net.Listener, error) {
	// Remove stale socket from a previous (crashed) run.
	_ = os.Remove(path)
	return net.Listen("unix", path)
}
