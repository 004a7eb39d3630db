package crypto

import "runtime"

// Wipe zeroes b, e.g. a password read from the terminal once it has been
// handed on. Best-effort: the write is kept live so it is not elided.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
