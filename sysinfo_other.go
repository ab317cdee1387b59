//go:build !linux

package sift

// getSystemMemory returns total system memory in bytes. Without a
// platform syscall we report a fixed 16GB; the value is informational.
func getSystemMemory() uint64 {
	return 16 << 30
}
