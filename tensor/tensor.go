// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the host tensor used by models, optimizers and
// checkpoints.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 3})
//	x.Fill(1)
//	gpu := tensor.MustParseDevice("cuda:0")
//	y := x.To(gpu) // copy tagged with the new device
package tensor

import (
	"math/rand/v2"

	"github.com/born-ml/lightning/internal/tensor"
)

// Tensor is a dense row-major float32 tensor placed on a Device.
type Tensor = tensor.Tensor

// Shape is a tensor shape.
type Shape = tensor.Shape

// DataType identifies an element type.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Device identifies where a tensor lives.
type Device = tensor.Device

// DeviceType is the kind of a Device.
type DeviceType = tensor.DeviceType

// Device types.
const (
	CPU    DeviceType = tensor.CPU
	CUDA   DeviceType = tensor.CUDA
	MPS    DeviceType = tensor.MPS
	WebGPU DeviceType = tensor.WebGPU
)

// HostDevice is the CPU.
var HostDevice = tensor.HostDevice

// New allocates a zero-filled tensor on device.
func New(shape Shape, device Device) (*Tensor, error) {
	return tensor.New(shape, device)
}

// Zeros allocates a zero-filled host tensor.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Full allocates a host tensor filled with value.
func Full(shape Shape, value float32) *Tensor {
	return tensor.Full(shape, value)
}

// FromSlice creates a host tensor holding a copy of data.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Uniform allocates a host tensor drawn from U(low, high).
func Uniform(shape Shape, low, high float32, rng *rand.Rand) *Tensor {
	return tensor.Uniform(shape, low, high, rng)
}

// ParseDevice parses names like "cpu", "cuda:1" or "mps".
func ParseDevice(s string) (Device, error) {
	return tensor.ParseDevice(s)
}

// MustParseDevice is ParseDevice that panics on error.
func MustParseDevice(s string) Device {
	return tensor.MustParseDevice(s)
}
