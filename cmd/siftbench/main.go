// Command siftbench benchmarks the parallel filter pipeline against the
// sequential reference, reporting per-phase latency and bandwidth in the
// layout of the classic OpenCL host program it reproduces.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/parcomp/sift"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// bandwidth derives GB/s from bytes moved by the pipeline: the input is
// read twice (count and compact passes) and the output written once.
func bandwidth(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(3*n*4) / elapsed.Seconds() / 1e9
}

func printColumnNames() {
	fmt.Printf("%19s", "function")
	for _, col := range []string{"sequential", "device total", "copy-in", "kernel", "copy-out"} {
		fmt.Printf("%20s", col)
	}
	fmt.Println()
}

func printRow(name string, dt [5]time.Duration) {
	fmt.Printf("%19s", name)
	for _, d := range dt {
		fmt.Printf("%20s", fmt.Sprintf("%dus", d.Microseconds()))
	}
	fmt.Println()
}

func profileFilter(n, groupSize int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	input := make([]float32, n)
	for i := range input {
		input[i] = rng.Float32()*2 - 1
	}

	var ref sift.Reference
	t0 := time.Now()
	expected := ref.Filter(input, sift.Positive)
	t1 := time.Now()

	ctx := sift.Default()
	dIn, err := sift.Malloc(n * 4)
	if err != nil {
		return err
	}
	defer sift.Free(dIn)
	dOut, err := sift.Malloc(n * 4)
	if err != nil {
		return err
	}
	defer sift.Free(dOut)

	if err := sift.Memcpy(dIn, input, n*4, sift.MemcpyHostToDevice); err != nil {
		return err
	}
	t2 := time.Now()

	length, err := ctx.FilterDevice(dIn, n, sift.Positive, groupSize, dOut)
	if err != nil {
		return err
	}
	t3 := time.Now()

	result := make([]float32, length)
	if err := sift.Memcpy(result, dOut, length*4, sift.MemcpyDeviceToHost); err != nil {
		return err
	}
	t4 := time.Now()

	if err := sift.VerifyFloat32(expected, result); err != nil {
		return fmt.Errorf("device result diverges from reference: %w", err)
	}

	printRow("filter", [5]time.Duration{
		t1.Sub(t0), // sequential
		t4.Sub(t1), // device total
		t2.Sub(t1), // copy-in
		t3.Sub(t2), // kernel (count + scan + compact)
		t4.Sub(t3), // copy-out
	})
	fmt.Printf("%19s%20s%20s\n", "bandwidth GB/s",
		fmt.Sprintf("%.2f", bandwidth(n, t1.Sub(t0))),
		fmt.Sprintf("%.2f", bandwidth(n, t4.Sub(t1))))

	logger.Info("verified", "n", n, "survivors", length, "groups", sift.GroupsFor(n, groupSize))
	return nil
}

func main() {
	var (
		n         = flag.Int("n", 1<<20, "input size in elements")
		groupSize = flag.Int("group", sift.DefaultGroupSize, "work-group size (power of two)")
		seed      = flag.Int64("seed", 1, "random seed for input generation")
	)
	flag.Parse()

	device := sift.GetDevice()
	logger.Info("platform", "os", runtime.GOOS, "arch", runtime.GOARCH, "go", runtime.Version())
	logger.Info("device",
		"name", device.Name,
		"cores", device.NumCores,
		"memory", device.TotalMem,
		"maxLanes", device.MaxLanes)
	if v, _ := sift.Version(); v != "" {
		logger.Info("sift", "version", v)
	}

	printColumnNames()
	if err := profileFilter(*n, *groupSize, *seed); err != nil {
		logger.Error("profile failed", "err", err)
		os.Exit(1)
	}
}
