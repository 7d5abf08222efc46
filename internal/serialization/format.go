package serialization

import (
	"crypto/sha256"
	"time"

	"github.com/born-ml/lightning/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "BORN"
	FormatVersion   = 2
	HeaderAlignment = 64 // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64
	ChecksumOffset  = 0x20
	ChecksumSize    = sha256.Size
	maxHeaderSize   = 100 * 1024 * 1024
)

// Flags for the .born format.
const (
	FlagHasOptimizer uint32 = 1 << 1 // optimizer state included
	FlagHasMetadata  uint32 = 1 << 2 // checkpoint metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion  int             `json:"format_version"`
	CreatedAt      time.Time       `json:"created_at"`
	Tensors        []TensorMeta    `json:"tensors"`
	CheckpointMeta *CheckpointMeta `json:"checkpoint,omitempty"`
}

// CheckpointMeta contains training state information for checkpoints.
type CheckpointMeta struct {
	RunID        string         `json:"run_id"`
	Epoch        int            `json:"epoch"`
	Step         int            `json:"step"`
	Optimizers   []string       `json:"optimizers,omitempty"` // Optimizer type per index
	TrainingMeta map[string]any `json:"training_meta,omitempty"`
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "layer_1.0.weight"
	DType  string `json:"dtype"`  // always "float32" when written by this package
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Byte offset within the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Checkpoint is the decoded content of a .born file.
type Checkpoint struct {
	Header    Header
	StateDict map[string]*tensor.Tensor
}
