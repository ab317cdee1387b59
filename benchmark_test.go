package sift

import (
	"fmt"
	"math/rand"
	"testing"
)

func randomInput(n int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	in := make([]float32, n)
	for i := range in {
		in[i] = rng.Float32()*2 - 1
	}
	return in
}

// Benchmark the full three-phase pipeline including host copies.
func BenchmarkFilter(b *testing.B) {
	sizes := []int{1 << 10, 1 << 14, 1 << 18, 1 << 20}

	for _, n := range sizes {
		b.Run(fmt.Sprintf("N_%d", n), func(b *testing.B) {
			input := randomInput(n, 1)

			// Input read twice (count + compact), output written once.
			b.SetBytes(int64(3 * n * 4))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := Filter(input, Positive); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// Benchmark the device phases alone, buffers resident.
func BenchmarkFilterDevice(b *testing.B) {
	const n = 1 << 20
	input := randomInput(n, 1)
	ctx := Default()

	dIn, _ := Malloc(n * 4)
	defer Free(dIn)
	dOut, _ := Malloc(n * 4)
	defer Free(dOut)
	Memcpy(dIn, input, n*4, MemcpyHostToDevice)

	b.SetBytes(int64(3 * n * 4))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := ctx.FilterDevice(dIn, n, Positive, DefaultGroupSize, dOut); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCountMatches(b *testing.B) {
	const n = 1 << 20
	input := randomInput(n, 1)
	ctx := Default()
	groups := GroupsFor(n, DefaultGroupSize)

	dIn, _ := Malloc(n * 4)
	defer Free(dIn)
	dCounts, _ := Malloc(groups * 4)
	defer Free(dCounts)
	Memcpy(dIn, input, n*4, MemcpyHostToDevice)

	b.SetBytes(int64(n * 4))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := ctx.CountMatches(dIn, n, Positive, DefaultGroupSize, dCounts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReferenceFilter(b *testing.B) {
	const n = 1 << 20
	input := randomInput(n, 1)
	var ref Reference

	b.SetBytes(int64(2 * n * 4))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = ref.Filter(input, Positive)
	}
}

func BenchmarkDeviceSum(b *testing.B) {
	const n = 1 << 20
	d, _ := Malloc(n * 4)
	defer Free(d)
	copy(d.Float32(), randomInput(n, 2))

	b.SetBytes(int64(n * 4))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = d.Sum(n)
	}
}
