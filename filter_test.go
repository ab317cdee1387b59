package sift

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterPositive(t *testing.T) {
	input := []float32{-1, 2, -3, 4, 5, -6}

	out, err := Filter(input, Positive)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 5}, out)
}

func TestFilterBlockBoundaries(t *testing.T) {
	// Three groups of two lanes: one survivor per group.
	input := []float32{1, -1, 2, -2, 3, -3}
	ctx := Default()

	out, err := ctx.Filter(input, Positive, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, out)

	// The intermediate tables must be [1,1,1] and [0,1,2].
	dIn := MallocOrFail(t, len(input)*4)
	defer Free(dIn)
	MemcpyOrFail(t, dIn, input, len(input)*4, MemcpyHostToDevice)

	dCounts := MallocOrFail(t, 3*4)
	defer Free(dCounts)
	dOffsets := MallocOrFail(t, 3*4)
	defer Free(dOffsets)

	require.NoError(t, ctx.CountMatches(dIn, len(input), Positive, 2, dCounts))
	assert.Equal(t, []int32{1, 1, 1}, dCounts.Int32()[:3])

	total, err := ctx.BlockOffsets(dCounts, 3, dOffsets)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []int32{0, 1, 2}, dOffsets.Int32()[:3])
}

func TestFilterEmpty(t *testing.T) {
	out, err := Filter([]float32{}, Positive)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Filter(nil, Positive)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFilterNoneMatch(t *testing.T) {
	input := []float32{-1, -2, -3, -4}
	out, err := Filter(input, Positive)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFilterAllMatch(t *testing.T) {
	input := make([]float32, 1000)
	for i := range input {
		input[i] = float32(i + 1)
	}
	out, err := Filter(input, Positive)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestFilterMatchesReference(t *testing.T) {
	// Sizes straddling group boundaries, including non-multiples of the
	// group size and inputs smaller than one group.
	sizes := []int{1, 7, 255, 256, 257, 1000, 4096, 100_000}
	predicates := map[string]Predicate{
		"positive":  Positive,
		"negative":  func(x float32) bool { return x < 0 },
		"magnitude": func(x float32) bool { return x > 0.25 && x < 0.75 },
		"all":       func(x float32) bool { return true },
		"none":      func(x float32) bool { return false },
	}

	var ref Reference
	rng := rand.New(rand.NewSource(42))

	for _, n := range sizes {
		input := make([]float32, n)
		for i := range input {
			input[i] = rng.Float32()*2 - 1
		}

		for name, pred := range predicates {
			t.Run(fmt.Sprintf("n=%d/%s", n, name), func(t *testing.T) {
				want := ref.Filter(input, pred)

				got, err := Filter(input, pred)
				require.NoError(t, err)

				require.NoError(t, VerifyFloat32(want, got))
				assert.Len(t, got, ref.CountIf(input, pred))
			})
		}
	}
}

func TestFilterGroupSizes(t *testing.T) {
	const n = 1337
	rng := rand.New(rand.NewSource(7))
	input := make([]float32, n)
	for i := range input {
		input[i] = rng.Float32()*2 - 1
	}

	var ref Reference
	want := ref.Filter(input, Positive)
	ctx := Default()

	for _, groupSize := range []int{1, 2, 16, 64, 256, 1024} {
		t.Run(fmt.Sprintf("L=%d", groupSize), func(t *testing.T) {
			got, err := ctx.Filter(input, Positive, groupSize)
			require.NoError(t, err)
			require.NoError(t, VerifyFloat32(want, got))
		})
	}
}

func TestFilterIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	input := make([]float32, 5000)
	for i := range input {
		input[i] = rng.Float32()*2 - 1
	}

	once, err := Filter(input, Positive)
	require.NoError(t, err)

	twice, err := Filter(once, Positive)
	require.NoError(t, err)

	assert.Equal(t, once, twice, "re-filtering a filtered set must be a no-op")
}

func TestFilterOrderPreserved(t *testing.T) {
	// Survivors carry their original index, so order preservation is
	// directly visible in the output.
	const n = 10_000
	input := make([]float32, n)
	keep := func(x float32) bool { return x >= 0 }
	for i := range input {
		if i%3 == 0 {
			input[i] = float32(i)
		} else {
			input[i] = -1
		}
	}

	out, err := Filter(input, keep)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i-1], out[i], "output out of order at %d", i)
	}
}

func TestOffsetsTileOutputExactly(t *testing.T) {
	// offset[i] must equal the running sum of counts and the final
	// offset plus count must equal the total: destinations tile
	// {0..total-1} with no gaps and no overlaps.
	const n, groupSize = 10_000, 64
	rng := rand.New(rand.NewSource(11))
	input := make([]float32, n)
	for i := range input {
		input[i] = rng.Float32()*2 - 1
	}

	ctx := Default()
	groups := GroupsFor(n, groupSize)

	dIn := MallocOrFail(t, n*4)
	defer Free(dIn)
	MemcpyOrFail(t, dIn, input, n*4, MemcpyHostToDevice)
	dCounts := MallocOrFail(t, groups*4)
	defer Free(dCounts)
	dOffsets := MallocOrFail(t, groups*4)
	defer Free(dOffsets)

	require.NoError(t, ctx.CountMatches(dIn, n, Positive, groupSize, dCounts))
	total, err := ctx.BlockOffsets(dCounts, groups, dOffsets)
	require.NoError(t, err)

	counts := dCounts.Int32()[:groups]
	offsets := dOffsets.Int32()[:groups]

	var running int32
	for g := 0; g < groups; g++ {
		assert.Equal(t, running, offsets[g], "offset of group %d", g)
		assert.GreaterOrEqual(t, counts[g], int32(0))
		assert.LessOrEqual(t, int(counts[g]), groupSize)
		running += counts[g]
	}
	assert.Equal(t, int(running), total)

	var ref Reference
	assert.Equal(t, ref.CountIf(input, Positive), total)
}

func TestFilterDevice(t *testing.T) {
	const n = 70_000
	rng := rand.New(rand.NewSource(9))
	input := make([]float32, n)
	for i := range input {
		input[i] = rng.Float32()*2 - 1
	}

	ctx := Default()
	dIn := MallocOrFail(t, n*4)
	defer Free(dIn)
	MemcpyOrFail(t, dIn, input, n*4, MemcpyHostToDevice)

	// Worst-case sized output with logical length returned separately.
	dOut := MallocOrFail(t, n*4)
	defer Free(dOut)

	length, err := ctx.FilterDevice(dIn, n, Positive, DefaultGroupSize, dOut)
	require.NoError(t, err)

	var ref Reference
	want := ref.Filter(input, Positive)
	require.Equal(t, len(want), length)
	require.NoError(t, VerifyFloat32(want, dOut.Float32()[:length]))
}

func TestFilterConfigErrors(t *testing.T) {
	input := []float32{1, 2, 3}
	ctx := Default()

	_, err := Filter(input, nil)
	assert.True(t, IsConfigError(err), "nil predicate: %v", err)

	for _, bad := range []int{0, -1, 3, SharedBufferCapacity * 2} {
		_, err := ctx.Filter(input, Positive, bad)
		assert.True(t, IsConfigError(err), "group size %d: %v", bad, err)
	}
}

func TestFilterBufferTooSmall(t *testing.T) {
	ctx := Default()
	dIn := MallocOrFail(t, 16*4)
	defer Free(dIn)
	dTiny := MallocOrFail(t, 4)
	defer Free(dTiny)

	err := ctx.CountMatches(dIn, 1024, Positive, 256, dTiny)
	assert.True(t, IsResourceError(err), "undersized input: %v", err)

	_, err = ctx.FilterDevice(dIn, 16, Positive, 16, dTiny)
	assert.True(t, IsResourceError(err), "undersized output: %v", err)
}
