package serialization

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/lightning/internal/tensor"
)

// Read decodes a checkpoint written by Write and validates its checksum.
func Read(r io.Reader) (*Checkpoint, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	if headerSize > maxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	if _, err := io.CopyN(io.Discard, r, padding(FixedHeaderSize+int64(headerSize))); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	var data bytes.Buffer
	if _, err := io.CopyN(&data, r, int64(dataSize)); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])
	if sha256.Sum256(data.Bytes()) != stored {
		return nil, ErrChecksumMismatch
	}

	ckpt := &Checkpoint{Header: header, StateDict: make(map[string]*tensor.Tensor, len(header.Tensors))}
	raw := data.Bytes()
	for _, tm := range header.Tensors {
		t, err := decodeTensor(tm, raw)
		if err != nil {
			return nil, err
		}
		ckpt.StateDict[tm.Name] = t
	}
	return ckpt, nil
}

// ReadFile reads a checkpoint from path.
func ReadFile(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func decodeTensor(tm TensorMeta, raw []byte) (*tensor.Tensor, error) {
	if tm.DType != tensor.Float32.String() {
		return nil, fmt.Errorf("%w: tensor %q has dtype %q", ErrUnsupportedDType, tm.Name, tm.DType)
	}
	if tm.Offset < 0 || tm.Size < 0 || tm.Offset+tm.Size > int64(len(raw)) {
		return nil, fmt.Errorf("%w: tensor %q", ErrOutOfBounds, tm.Name)
	}

	shape := tensor.Shape(tm.Shape)
	if int64(shape.NumElements())*4 != tm.Size {
		return nil, fmt.Errorf("tensor %q: shape %v does not match %d bytes", tm.Name, shape, tm.Size)
	}

	buf := raw[tm.Offset : tm.Offset+tm.Size]
	values := make([]float32, shape.NumElements())
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	t, err := tensor.FromSlice(values, shape)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", tm.Name, err)
	}
	return t, nil
}
