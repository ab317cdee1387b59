// Package sift configuration constants.
package sift

import "fmt"

// Work-group geometry
const (
	// SharedBufferCapacity is the number of slots in a group-local
	// buffer, and therefore the maximum lanes per work-group.
	SharedBufferCapacity = 1024

	// DefaultGroupSize is the block size used by the filter pipeline
	// unless the caller overrides it.
	DefaultGroupSize = 256
)

// Memory pool parameters
const (
	// MemoryAlignment for device allocations, one cache line.
	MemoryAlignment = 64

	// MinAllocationSize prevents fragmentation from tiny blocks.
	MinAllocationSize = 64
)

// ValidateGroupSize checks that lanes is usable as a work-group size:
// positive, a power of two, and within the group-local buffer capacity.
// Violations are configuration errors, caught before any dispatch.
func ValidateGroupSize(lanes int) error {
	if lanes <= 0 {
		return NewConfigError("Launch", fmt.Sprintf("group size %d: must be positive", lanes))
	}
	if lanes&(lanes-1) != 0 {
		return NewConfigError("Launch", fmt.Sprintf("group size %d: must be a power of two", lanes))
	}
	if lanes > SharedBufferCapacity {
		return NewConfigError("Launch",
			fmt.Sprintf("group size %d exceeds group-local buffer capacity %d", lanes, SharedBufferCapacity))
	}
	return nil
}

// nextPowerOfTwo returns the smallest power of two >= n, minimum 1.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
