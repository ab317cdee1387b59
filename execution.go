package sift

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Group is the per-work-group execution scope shared by all lanes of one
// group: group-local storage plus the group barrier. It stands in for
// OpenCL __local memory and barrier(CLK_LOCAL_MEM_FENCE).
//
// Group-local storage is owned by exactly one group for the duration of
// one launch; lanes of other groups can never observe it.
type Group struct {
	id      int
	lanes   int
	f32     []float32
	i32     []int32
	barrier *Barrier
}

// ID returns the work-group index.
func (g *Group) ID() int { return g.id }

// Lanes returns the number of lanes in the group.
func (g *Group) Lanes() int { return g.lanes }

// LocalFloat32 returns the group-local float32 buffer, one slot per lane.
func (g *Group) LocalFloat32() []float32 { return g.f32 }

// LocalInt32 returns the group-local int32 buffer, one slot per lane.
func (g *Group) LocalInt32() []int32 { return g.i32 }

// Sync blocks until every lane of the group has called it. All lanes must
// reach every Sync the kernel executes, including masked-out lanes.
func (g *Group) Sync() { g.barrier.Await() }

// launchInternal implements the core kernel execution logic.
//
// Groups are distributed across NumCPU workers so each worker processes a
// contiguous run of groups (cache reuse across a block's two passes over
// the input). Within a group, every lane runs as its own goroutine so the
// group barrier has real blocking semantics.
func (ctx *Context) launchInternal(kernel KernelFunc, groups, lanes int, stream *Stream) error {
	if kernel == nil {
		return NewConfigError("Launch", "nil kernel")
	}
	if groups < 0 {
		return NewConfigError("Launch", fmt.Sprintf("negative group count %d", groups))
	}
	if err := ValidateGroupSize(lanes); err != nil {
		return err
	}

	if groups == 0 {
		// Submit an empty task to maintain stream ordering.
		stream.Submit(func() {})
		return nil
	}

	numWorkers := runtime.NumCPU()
	if groups < numWorkers {
		numWorkers = groups
	}
	groupsPerWorker := (groups + numWorkers - 1) / numWorkers

	stream.Submit(func() {
		var eg errgroup.Group

		for workerID := 0; workerID < numWorkers; workerID++ {
			start := workerID * groupsPerWorker
			end := start + groupsPerWorker
			if end > groups {
				end = groups
			}

			eg.Go(func() error {
				for groupID := start; groupID < end; groupID++ {
					if err := runGroup(kernel, groupID, groups, lanes); err != nil {
						return err
					}
				}
				return nil
			})
		}

		stream.setErr(eg.Wait())
	})

	return nil
}

// runGroup executes all lanes of one work-group and waits for them.
// A panicking lane breaks the group barrier so sibling lanes cannot
// deadlock, and the panic is surfaced as an execution error.
func runGroup(kernel KernelFunc, groupID, groups, lanes int) error {
	grp := &Group{
		id:      groupID,
		lanes:   lanes,
		f32:     make([]float32, lanes),
		i32:     make([]int32, lanes),
		barrier: NewBarrier(lanes),
	}

	var eg errgroup.Group
	for lane := 0; lane < lanes; lane++ {
		item := WorkItem{
			Group:  groupID,
			Local:  lane,
			Lanes:  lanes,
			Groups: groups,
		}

		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					grp.barrier.Break()
					err = NewExecutionError("Launch",
						fmt.Sprintf("lane %d of group %d panicked: %v", item.Local, item.Group, r), nil)
				}
			}()
			kernel(item, grp)
			return nil
		})
	}
	return eg.Wait()
}

// GroupsFor returns the number of work-groups needed to cover n elements
// with one lane per element: ceil(n/lanes).
func GroupsFor(n, lanes int) int {
	return (n + lanes - 1) / lanes
}

// ForEach applies fn to each of the first size elements of data in
// parallel, one lane per element. Lanes past the end are masked out.
func ForEach(data DevicePtr, size int, fn func(idx int, val *float32)) error {
	lanes := DefaultGroupSize
	err := Launch(func(item WorkItem, grp *Group) {
		idx := item.Global()
		if idx < size {
			slice := data.Float32()
			fn(idx, &slice[idx])
		}
	}, GroupsFor(size, lanes), lanes)
	if err != nil {
		return err
	}
	return Synchronize()
}
