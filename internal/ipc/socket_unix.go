//go:build unix

package ipc

import "golang.org/x/sys/unix"

// withPrivateUmask runs f with a umask that keeps newly created socket
// files owner-only, then restores the previous mask.
func withPrivateUmask(f func() error) error {
	old := unix.Umask(0o077)
	defer unix.Umask(old)
	return f()
}
