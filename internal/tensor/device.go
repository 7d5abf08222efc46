package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceType identifies a class of compute device.
type DeviceType int

// Supported device types.
const (
	CPU DeviceType = iota
	CUDA
	MPS
	WebGPU
)

// String returns the lowercase device type name used in device strings.
func (d DeviceType) String() string {
	switch d {
	case CPU:
		return "cpu"
	case CUDA:
		return "cuda"
	case MPS:
		return "mps"
	case WebGPU:
		return "webgpu"
	default:
		return "unknown"
	}
}

// Device is a concrete placement: a device type plus an ordinal.
//
// The zero value is the host CPU.
type Device struct {
	Type  DeviceType
	Index int
}

// HostDevice is the default placement of every tensor.
var HostDevice = Device{Type: CPU}

// String formats the device the way ParseDevice reads it ("cpu", "cuda:0").
func (d Device) String() string {
	if d.Type == CPU {
		return d.Type.String()
	}
	return fmt.Sprintf("%s:%d", d.Type, d.Index)
}

// ParseDevice parses device strings such as "cpu", "cuda", "cuda:1" or "mps:0".
func ParseDevice(s string) (Device, error) {
	name, idx, hasIdx := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")

	var dev Device
	switch name {
	case "cpu":
		dev.Type = CPU
	case "cuda", "gpu":
		dev.Type = CUDA
	case "mps":
		dev.Type = MPS
	case "webgpu":
		dev.Type = WebGPU
	default:
		return Device{}, fmt.Errorf("unknown device %q", s)
	}

	if hasIdx {
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 {
			return Device{}, fmt.Errorf("invalid device index in %q", s)
		}
		if dev.Type == CPU && n != 0 {
			return Device{}, fmt.Errorf("cpu device has no index %d", n)
		}
		dev.Index = n
	}
	return dev, nil
}

// MustParseDevice is like ParseDevice but panics on error.
func MustParseDevice(s string) Device {
	d, err := ParseDevice(s)
	if err != nil {
		panic(err)
	}
	return d
}
