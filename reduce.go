package sift

import "math"

// Device reductions built on the same two-phase shape as the filter
// pipeline: each work-group stages its block in group-local memory, lane
// 0 combines the staged values into a per-group partial, and the host
// folds the partials. They operate on the default context.

// partialReduceKernel stages a block and lets lane 0 fold the valid
// prefix with combine, writing the group's partial.
func partialReduceKernel(in []float32, n int, combine func(a, b float32) float32, identity float32, partials []float32) KernelFunc {
	return func(item WorkItem, grp *Group) {
		buf := grp.LocalFloat32()
		if gi := item.Global(); gi < n {
			buf[item.Local] = in[gi]
		}
		grp.Sync()

		if item.Local == 0 {
			valid := n - item.Group*item.Lanes
			if valid > item.Lanes {
				valid = item.Lanes
			}
			acc := identity
			for j := 0; j < valid; j++ {
				acc = combine(acc, buf[j])
			}
			partials[item.Group] = acc
		}
	}
}

func (d DevicePtr) reduce(n int, combine func(a, b float32) float32, identity float32) float32 {
	if n == 0 {
		return identity
	}
	lanes := DefaultGroupSize
	groups := GroupsFor(n, lanes)
	partials := make([]float32, groups)

	// Group size and geometry are fixed here, so launch cannot fail on
	// configuration; execution errors would surface from Synchronize.
	_ = Launch(partialReduceKernel(d.Float32()[:n], n, combine, identity, partials), groups, lanes)
	_ = Synchronize()

	acc := identity
	for _, p := range partials {
		acc = combine(acc, p)
	}
	return acc
}

// Sum computes the sum of the first n elements.
func (d DevicePtr) Sum(n int) float32 {
	return d.reduce(n, func(a, b float32) float32 { return a + b }, 0)
}

// Max returns the maximum of the first n elements, -Inf for n == 0.
func (d DevicePtr) Max(n int) float32 {
	return d.reduce(n, func(a, b float32) float32 {
		if b > a {
			return b
		}
		return a
	}, float32(math.Inf(-1)))
}

// Min returns the minimum of the first n elements, +Inf for n == 0.
func (d DevicePtr) Min(n int) float32 {
	return d.reduce(n, func(a, b float32) float32 {
		if b < a {
			return b
		}
		return a
	}, float32(math.Inf(1)))
}

// Mean computes the arithmetic mean of the first n elements.
func (d DevicePtr) Mean(n int) float32 {
	if n == 0 {
		return 0
	}
	return d.Sum(n) / float32(n)
}

// CountIf counts the elements among the first n satisfying pred, using
// the filter pipeline's count phase.
func (d DevicePtr) CountIf(n int, pred Predicate) int {
	if n == 0 || pred == nil {
		return 0
	}
	lanes := DefaultGroupSize
	groups := GroupsFor(n, lanes)
	counts := make([]int32, groups)

	_ = Launch(countMatchesKernel(d.Float32()[:n], n, pred, counts), groups, lanes)
	_ = Synchronize()

	var total int
	for _, c := range counts {
		total += int(c)
	}
	return total
}
