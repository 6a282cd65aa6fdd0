//go:build !unix

package ipc

// withPrivateUmask is a no-op on platforms without umask semantics.
func withPrivateUmask(f func() error) error {
	return f()
}
