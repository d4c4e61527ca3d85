//go:build !linux && !darwin

package log

import "os"

// IsTerminal reports whether f is attached to a terminal. Colors are
// never enabled automatically on this platform.
func IsTerminal(f *os.File) bool {
	return false
}
