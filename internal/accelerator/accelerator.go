// Package accelerator resolves the trainer's accelerator setting to a device
// and describes the host it runs on.
package accelerator

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/born-ml/lightning/internal/tensor"
)

// Info describes the host CPU.
type Info struct {
	Brand        string
	LogicalCores int
	Features     []string
}

// simdFeatures are the features reported by Detect, in display order.
var simdFeatures = []struct {
	id   cpuid.FeatureID
	name string
}{
	{cpuid.SSE4, "sse4.1"},
	{cpuid.AVX, "avx"},
	{cpuid.AVX2, "avx2"},
	{cpuid.FMA3, "fma3"},
	{cpuid.AVX512F, "avx512f"},
	{cpuid.ASIMD, "neon"},
	{cpuid.SVE, "sve"},
}

// Detect inspects the host CPU.
func Detect() Info {
	info := Info{
		Brand:        strings.TrimSpace(cpuid.CPU.BrandName),
		LogicalCores: cpuid.CPU.LogicalCores,
	}
	if info.Brand == "" {
		info.Brand = runtime.GOARCH
	}
	if info.LogicalCores == 0 {
		info.LogicalCores = runtime.NumCPU()
	}
	for _, f := range simdFeatures {
		if cpuid.CPU.Supports(f.id) {
			info.Features = append(info.Features, f.name)
		}
	}
	return info
}

func (i Info) String() string {
	feats := "none"
	if len(i.Features) > 0 {
		feats = strings.Join(i.Features, ",")
	}
	return fmt.Sprintf("%s (%d logical cores, simd: %s)", i.Brand, i.LogicalCores, feats)
}

// Resolve maps an accelerator name and device ordinal to the root device of
// a run. "auto" and "" resolve to the CPU. Only one device per process is
// supported.
func Resolve(accelerator string, devices int) (tensor.Device, error) {
	if devices < 0 {
		return tensor.Device{}, fmt.Errorf("devices must be >= 0, got %d", devices)
	}
	if devices > 1 {
		return tensor.Device{}, fmt.Errorf("devices=%d: only a single device per process is supported", devices)
	}

	switch strings.ToLower(accelerator) {
	case "", "auto", "cpu":
		return tensor.HostDevice, nil
	case "gpu", "cuda":
		return tensor.Device{Type: tensor.CUDA}, nil
	case "mps":
		return tensor.Device{Type: tensor.MPS}, nil
	case "webgpu":
		return tensor.Device{Type: tensor.WebGPU}, nil
	default:
		return tensor.Device{}, fmt.Errorf("unknown accelerator %q", accelerator)
	}
}
