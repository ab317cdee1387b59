package sift

// Prefix-sum primitives. The filter pipeline needs an exclusive scan over
// per-group match counts to turn them into output base offsets; the scan
// is kept generic over the combining operator so it is reusable and
// testable on its own.

// ScanExclusive computes the exclusive prefix of values under combine:
// prefix[i] = combine of values[0..i-1], prefix[0] = identity. It also
// returns the total, i.e. the combine of all values. combine must be
// associative; identity must be its neutral element.
func ScanExclusive[T any](values []T, combine func(T, T) T, identity T) (prefix []T, total T) {
	prefix = make([]T, len(values))
	acc := identity
	for i, v := range values {
		prefix[i] = acc
		acc = combine(acc, v)
	}
	return prefix, acc
}

// scanBlocksKernel is a single-group work-efficient Blelloch scan over b
// counts held in group-local memory: an up-sweep builds partial sums in a
// tree, lane 0 records the total and clears the root, and the down-sweep
// distributes exclusive prefixes back down. O(b) work, O(log b) depth,
// one barrier per tree step. Lanes past b load the additive identity.
func scanBlocksKernel(counts, offsets []int32, b int, total []int32) KernelFunc {
	return func(item WorkItem, grp *Group) {
		buf := grp.LocalInt32()
		t := item.Local
		lanes := item.Lanes

		if t < b {
			buf[t] = counts[t]
		} else {
			buf[t] = 0
		}
		grp.Sync()

		for stride := 1; stride < lanes; stride <<= 1 {
			idx := (t+1)*stride*2 - 1
			if idx < lanes {
				buf[idx] += buf[idx-stride]
			}
			grp.Sync()
		}

		if t == 0 {
			total[0] = buf[lanes-1]
			buf[lanes-1] = 0
		}
		grp.Sync()

		for stride := lanes >> 1; stride > 0; stride >>= 1 {
			idx := (t+1)*stride*2 - 1
			if idx < lanes {
				tmp := buf[idx-stride]
				buf[idx-stride] = buf[idx]
				buf[idx] += tmp
			}
			grp.Sync()
		}

		if t < b {
			offsets[t] = buf[t]
		}
	}
}

// BlockOffsets turns the per-group count table (b entries in dCounts)
// into the per-group base offset table via exclusive prefix sum, and
// returns the total number of surviving elements.
//
// When the padded count table fits a single work-group the scan runs as a
// device kernel; otherwise it falls back to the host scan. The two are
// correctness-equivalent, only the depth differs.
func (ctx *Context) BlockOffsets(dCounts DevicePtr, b int, dOffsets DevicePtr) (int, error) {
	if b < 0 {
		return 0, NewConfigError("BlockOffsets", "negative block count")
	}
	if b == 0 {
		return 0, nil
	}
	if dCounts.Size() < b*4 || dOffsets.Size() < b*4 {
		return 0, NewResourceError("BlockOffsets", "count/offset buffer too small", nil)
	}

	counts := dCounts.Int32()[:b]
	offsets := dOffsets.Int32()[:b]

	lanes := nextPowerOfTwo(b)
	if lanes <= SharedBufferCapacity {
		total := make([]int32, 1)
		if err := ctx.Launch(scanBlocksKernel(counts, offsets, b, total), 1, lanes); err != nil {
			return 0, err
		}
		if err := ctx.Synchronize(); err != nil {
			return 0, err
		}
		return int(total[0]), nil
	}

	prefix, total := ScanExclusive(counts, func(x, y int32) int32 { return x + y }, 0)
	copy(offsets, prefix)
	return int(total), nil
}
