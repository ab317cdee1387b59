package sift

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks the instruction set extensions relevant to
// bandwidth-bound kernels. Reported by the benchmark command alongside
// the device name, the way an OpenCL host prints platform/device info.
type CPUFeatures struct {
	HasSSE4    bool
	HasAVX     bool
	HasAVX2    bool
	HasFMA     bool
	HasAVX512F bool
	HasNEON    bool
}

// Initialized as a package variable so it is ready before any init func
// builds the Device descriptor.
var cpuFeatures = detectCPUFeatures()

func detectCPUFeatures() CPUFeatures {
	return CPUFeatures{
		HasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:     cpu.X86.HasAVX,
		HasAVX2:    cpu.X86.HasAVX2,
		HasFMA:     cpu.X86.HasFMA,
		HasAVX512F: cpu.X86.HasAVX512F,
		HasNEON:    cpu.ARM64.HasASIMD,
	}
}

// Features returns the detected CPU features.
func Features() CPUFeatures {
	return cpuFeatures
}

// String summarizes the feature set, most capable first.
func (f CPUFeatures) String() string {
	var s []string
	if f.HasAVX512F {
		s = append(s, "AVX512F")
	}
	if f.HasAVX2 {
		s = append(s, "AVX2")
	}
	if f.HasFMA {
		s = append(s, "FMA")
	}
	if f.HasAVX && !f.HasAVX2 {
		s = append(s, "AVX")
	}
	if f.HasSSE4 && !f.HasAVX {
		s = append(s, "SSE4")
	}
	if f.HasNEON {
		s = append(s, "NEON")
	}
	if len(s) == 0 {
		return "scalar"
	}
	return strings.Join(s, "+")
}

// deviceName builds the Device.Name string from architecture and features.
func deviceName() string {
	return fmt.Sprintf("CPU %s (%s)", runtime.GOARCH, cpuFeatures)
}
