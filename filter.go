package sift

import "fmt"

// Stream compaction: produce the order-preserving subsequence of an input
// array whose elements satisfy a predicate, computed in three strictly
// ordered device phases:
//
//	input -> CountMatches -> per-group counts
//	counts -> BlockOffsets -> per-group base offsets (exclusive scan)
//	input + offsets -> Compact -> packed output
//
// Each group's destinations are offset[group] + rank-within-group, so the
// destination sets of all lanes are pairwise disjoint and no atomics are
// needed anywhere in the pipeline.

// Predicate is a pure elementwise test. The same function is evaluated on
// the device and by the sequential reference, so it must be side-effect
// free and deterministic.
type Predicate func(x float32) bool

// Positive reports whether x > 0, the classic compaction predicate.
func Positive(x float32) bool { return x > 0 }

// countMatchesKernel counts predicate matches per work-group. Lanes
// cooperatively stage the group's block of the input in group-local
// memory (lanes whose global index is past the end are masked out and
// stage nothing), then after the barrier lane 0 scans the staged block
// and writes the match count for the group.
func countMatchesKernel(in []float32, n int, pred Predicate, counts []int32) KernelFunc {
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
			var cnt int32
			for j := 0; j < valid; j++ {
				if pred(buf[j]) {
					cnt++
				}
			}
			counts[item.Group] = cnt
		}
	}
}

// compactKernel writes each group's surviving elements to the output.
// The block is staged exactly as in countMatchesKernel; lane 0 then walks
// it in index order, writing match j of the group to offset[group]+j.
// Within-group order is preserved by the sequential walk, across-group
// order by the monotonic offsets, and no two lanes ever share a
// destination index.
func compactKernel(in []float32, n int, pred Predicate, offsets []int32, out []float32) KernelFunc {
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
			dst := int(offsets[item.Group])
			for j := 0; j < valid; j++ {
				if pred(buf[j]) {
					out[dst] = buf[j]
					dst++
				}
			}
		}
	}
}

// CountMatches runs the count phase: one work-group per block of lanes
// input elements, writing GroupsFor(n, lanes) match counts to dCounts.
// The call returns after the device-wide fence; the count table is fully
// written when it does.
func (ctx *Context) CountMatches(dIn DevicePtr, n int, pred Predicate, lanes int, dCounts DevicePtr) error {
	if pred == nil {
		return NewConfigError("CountMatches", "nil predicate")
	}
	if err := ValidateGroupSize(lanes); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	groups := GroupsFor(n, lanes)
	if dIn.Size() < n*4 {
		return NewResourceError("CountMatches", fmt.Sprintf("input buffer smaller than %d floats", n), nil)
	}
	if dCounts.Size() < groups*4 {
		return NewResourceError("CountMatches", fmt.Sprintf("count buffer smaller than %d ints", groups), nil)
	}

	k := countMatchesKernel(dIn.Float32()[:n], n, pred, dCounts.Int32()[:groups])
	if err := ctx.Launch(k, groups, lanes); err != nil {
		return err
	}
	return ctx.Synchronize()
}

// Compact runs the write phase. dOffsets must hold the exclusive prefix
// sum of the count table and dOut must have room for every surviving
// element. Returns after the device-wide fence.
func (ctx *Context) Compact(dIn DevicePtr, n int, pred Predicate, lanes int, dOffsets, dOut DevicePtr) error {
	if pred == nil {
		return NewConfigError("Compact", "nil predicate")
	}
	if err := ValidateGroupSize(lanes); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	groups := GroupsFor(n, lanes)
	if dIn.Size() < n*4 {
		return NewResourceError("Compact", fmt.Sprintf("input buffer smaller than %d floats", n), nil)
	}
	if dOffsets.Size() < groups*4 {
		return NewResourceError("Compact", fmt.Sprintf("offset buffer smaller than %d ints", groups), nil)
	}

	k := compactKernel(dIn.Float32()[:n], n, pred, dOffsets.Int32()[:groups], dOut.Float32())
	if err := ctx.Launch(k, groups, lanes); err != nil {
		return err
	}
	return ctx.Synchronize()
}

// FilterDevice runs all three phases over caller-owned device buffers.
// dOut must have capacity for n floats (the worst case); the logical
// length of the packed result is returned. Count and offset scratch is
// pool-allocated internally.
func (ctx *Context) FilterDevice(dIn DevicePtr, n int, pred Predicate, lanes int, dOut DevicePtr) (int, error) {
	if pred == nil {
		return 0, NewConfigError("FilterDevice", "nil predicate")
	}
	if err := ValidateGroupSize(lanes); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if dOut.Size() < n*4 {
		return 0, NewResourceError("FilterDevice", fmt.Sprintf("output buffer smaller than %d floats", n), nil)
	}

	groups := GroupsFor(n, lanes)
	dCounts, err := ctx.Malloc(groups * 4)
	if err != nil {
		return 0, err
	}
	defer ctx.Free(dCounts)
	dOffsets, err := ctx.Malloc(groups * 4)
	if err != nil {
		return 0, err
	}
	defer ctx.Free(dOffsets)

	if err := ctx.CountMatches(dIn, n, pred, lanes, dCounts); err != nil {
		return 0, err
	}
	total, err := ctx.BlockOffsets(dCounts, groups, dOffsets)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	if err := ctx.Compact(dIn, n, pred, lanes, dOffsets, dOut); err != nil {
		return 0, err
	}
	return total, nil
}

// Filter compacts input on the default context with the default group
// size, returning exactly the elements satisfying pred in input order.
func Filter(input []float32, pred Predicate) ([]float32, error) {
	return defaultContext.Filter(input, pred, DefaultGroupSize)
}

// Filter compacts input with the given group size. It follows the
// two-pass protocol: count and scan first to learn the output size, then
// allocate the output exactly and run the write phase. On any error the
// call fails atomically; no partial output is returned.
func (ctx *Context) Filter(input []float32, pred Predicate, groupSize int) ([]float32, error) {
	if pred == nil {
		return nil, NewConfigError("Filter", "nil predicate")
	}
	if err := ValidateGroupSize(groupSize); err != nil {
		return nil, err
	}
	n := len(input)
	if n == 0 {
		return []float32{}, nil
	}

	dIn, err := ctx.Malloc(n * 4)
	if err != nil {
		return nil, err
	}
	defer ctx.Free(dIn)
	if err := ctx.Memcpy(dIn, input, n*4, MemcpyHostToDevice); err != nil {
		return nil, err
	}

	groups := GroupsFor(n, groupSize)
	dCounts, err := ctx.Malloc(groups * 4)
	if err != nil {
		return nil, err
	}
	defer ctx.Free(dCounts)
	dOffsets, err := ctx.Malloc(groups * 4)
	if err != nil {
		return nil, err
	}
	defer ctx.Free(dOffsets)

	if err := ctx.CountMatches(dIn, n, pred, groupSize, dCounts); err != nil {
		return nil, err
	}
	total, err := ctx.BlockOffsets(dCounts, groups, dOffsets)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []float32{}, nil
	}

	dOut, err := ctx.Malloc(total * 4)
	if err != nil {
		return nil, err
	}
	defer ctx.Free(dOut)
	if err := ctx.Compact(dIn, n, pred, groupSize, dOffsets, dOut); err != nil {
		return nil, err
	}

	out := make([]float32, total)
	if err := ctx.Memcpy(out, dOut, total*4, MemcpyDeviceToHost); err != nil {
		return nil, err
	}
	return out, nil
}
