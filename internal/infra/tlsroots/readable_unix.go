//go:build unix

package tlsroots

import "golang.org/x/sys/unix"

// readable asks the kernel whether the current process may read path,
// honouring SELinux and ACLs that a mode-bit check would miss.
func readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
