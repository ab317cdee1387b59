// Package sift implements GPU-style stream compaction on the CPU.
//
// Sift models an OpenCL-like execution environment — work-groups of lanes
// with group-local memory and a group barrier — and builds a three-phase
// parallel filter pipeline on top of it:
//
//   1. count: each work-group counts the elements of its block that
//      satisfy the predicate (group-local buffer + barrier + elected lane)
//   2. scan: an exclusive prefix sum over the per-group counts yields
//      each group's base offset in the compacted output
//   3. compact: each group writes its surviving elements to
//      offset[group] + local rank, preserving input order
//
// Destination indices are pairwise disjoint by construction, so the
// pipeline needs no atomics and no locks. A sequential reference
// implementation serves as the correctness oracle for tests and the
// benchmark command.
package sift
