package tensor

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Tensor is a dense row-major float32 tensor placed on a Device.
//
// Tensors are mutable: optimizers and gradient clipping update them in place.
type Tensor struct {
	data   []float32
	shape  Shape
	device Device
}

// New allocates a zero-filled tensor on the given device.
func New(shape Shape, device Device) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Tensor{
		data:   make([]float32, shape.NumElements()),
		shape:  shape.Clone(),
		device: device,
	}, nil
}

// Zeros allocates a zero-filled host tensor. Panics on an invalid shape.
func Zeros(shape Shape) *Tensor {
	t, err := New(shape, HostDevice)
	if err != nil {
		panic(err)
	}
	return t
}

// Full allocates a host tensor with every element set to value.
func Full(shape Shape, value float32) *Tensor {
	t := Zeros(shape)
	t.Fill(value)
	return t
}

// FromSlice creates a host tensor holding a copy of data.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	buf := make([]float32, len(data))
	copy(buf, data)
	return &Tensor{data: buf, shape: shape.Clone(), device: HostDevice}, nil
}

// Uniform allocates a host tensor drawn from U(low, high).
func Uniform(shape Shape, low, high float32, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = low + rng.Float32()*(high-low)
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// DType returns the storage type, always Float32.
func (t *Tensor) DType() DataType {
	return Float32
}

// Device returns the tensor's placement.
func (t *Tensor) Device() Device {
	return t.device
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the underlying storage. Writes are visible to every holder.
func (t *Tensor) Data() []float32 {
	return t.data
}

// Clone returns a deep copy on the same device.
func (t *Tensor) Clone() *Tensor {
	buf := make([]float32, len(t.data))
	copy(buf, t.data)
	return &Tensor{data: buf, shape: t.shape.Clone(), device: t.device}
}

// To returns the tensor placed on device. The receiver is returned unchanged
// when it already lives there.
func (t *Tensor) To(device Device) *Tensor {
	if t.device == device {
		return t
	}
	c := t.Clone()
	c.device = device
	return c
}

// Fill sets every element to value.
func (t *Tensor) Fill(value float32) {
	for i := range t.data {
		t.data[i] = value
	}
}

// CopyFrom overwrites the receiver's elements with src's. Shapes must match;
// the receiver keeps its own device.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !t.shape.Equal(src.shape) {
		return fmt.Errorf("shape mismatch: have %v, got %v", t.shape, src.shape)
	}
	copy(t.data, src.data)
	return nil
}

// Clamp limits every element to [lo, hi] in place.
func (t *Tensor) Clamp(lo, hi float32) {
	for i, v := range t.data {
		t.data[i] = min(max(v, lo), hi)
	}
}

// Scale multiplies every element by f in place.
func (t *Tensor) Scale(f float32) {
	for i := range t.data {
		t.data[i] *= f
	}
}

// AddScaled computes t += alpha * other in place.
func (t *Tensor) AddScaled(other *Tensor, alpha float32) {
	if len(other.data) != len(t.data) {
		panic(fmt.Sprintf("AddScaled: size mismatch %v vs %v", t.shape, other.shape))
	}
	for i, v := range other.data {
		t.data[i] += alpha * v
	}
}

// SumSquares returns the sum of squared elements in float64.
func (t *Tensor) SumSquares() float64 {
	var s float64
	for _, v := range t.data {
		s += float64(v) * float64(v)
	}
	return s
}

// Min returns the smallest element.
func (t *Tensor) Min() float32 {
	m := float32(math.Inf(1))
	for _, v := range t.data {
		m = min(m, v)
	}
	return m
}

// Max returns the largest element.
func (t *Tensor) Max() float32 {
	m := float32(math.Inf(-1))
	for _, v := range t.data {
		m = max(m, v)
	}
	return m
}

// AllClose reports whether both tensors have the same shape and every pair of
// elements satisfies |a-b| <= atol + rtol*|b|.
func (t *Tensor) AllClose(other *Tensor, rtol, atol float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i, a := range t.data {
		b := float64(other.data[i])
		if math.Abs(float64(a)-b) > atol+rtol*math.Abs(b) {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, device=%s)", t.shape, t.device)
}
