// Package sift reference implementations for verification.
package sift

import (
	"fmt"
	"math"
)

// Reference contains simple, single-threaded implementations of the
// pipeline's operations. They are intentionally the most obvious code
// possible so their correctness is self-evident; tests and the benchmark
// command diff the parallel pipeline against them. Never used on the
// performance path.
type Reference struct{}

// Filter returns the order-preserving subsequence of input satisfying
// pred. One pass, O(n).
func (Reference) Filter(input []float32, pred Predicate) []float32 {
	out := make([]float32, 0, len(input))
	for _, x := range input {
		if pred(x) {
			out = append(out, x)
		}
	}
	return out
}

// CountIf returns the number of elements of input satisfying pred.
func (Reference) CountIf(input []float32, pred Predicate) int {
	cnt := 0
	for _, x := range input {
		if pred(x) {
			cnt++
		}
	}
	return cnt
}

// ScanExclusive returns the exclusive prefix sums of values.
func (Reference) ScanExclusive(values []int32) []int32 {
	out := make([]int32, len(values))
	var acc int32
	for i, v := range values {
		out[i] = acc
		acc += v
	}
	return out
}

// Sum returns the sum of x.
func (Reference) Sum(x []float32) float32 {
	var sum float32
	for _, v := range x {
		sum += v
	}
	return sum
}

// Max returns the maximum of x, -Inf for an empty slice.
func (Reference) Max(x []float32) float32 {
	max := float32(math.Inf(-1))
	for _, v := range x {
		if v > max {
			max = v
		}
	}
	return max
}

// Min returns the minimum of x, +Inf for an empty slice.
func (Reference) Min(x []float32) float32 {
	min := float32(math.Inf(1))
	for _, v := range x {
		if v < min {
			min = v
		}
	}
	return min
}

// VerifyFloat32 compares two float32 sequences for exact equality.
// Compaction copies values untouched, so the parallel result must match
// the reference bit for bit; the first mismatch is reported.
func VerifyFloat32(expected, got []float32) error {
	if len(expected) != len(got) {
		return fmt.Errorf("length mismatch: expected %d elements, got %d", len(expected), len(got))
	}
	for i := range expected {
		if expected[i] != got[i] {
			return fmt.Errorf("element %d: expected %v, got %v", i, expected[i], got[i])
		}
	}
	return nil
}
