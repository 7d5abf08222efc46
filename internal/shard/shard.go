// Package shard implements tensors partitioned across ranks.
//
// A ShardedTensor describes a global tensor split into chunks along one
// dimension. Each process materializes only the shards placed on its own
// rank; the rest are described by metadata alone.
package shard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/lightning/internal/tensor"
)

// ErrInvalidPlacement is returned for placement strings that are not "rank:<n>/<device>".
var ErrInvalidPlacement = errors.New("invalid shard placement")

// Placement pins a shard to a rank and a device on that rank.
type Placement struct {
	Rank   int
	Device tensor.Device
}

// ParsePlacement parses strings such as "rank:0/cpu" or "rank:1/cuda:1".
func ParsePlacement(s string) (Placement, error) {
	rankPart, devPart, ok := strings.Cut(s, "/")
	if !ok {
		return Placement{}, fmt.Errorf("%w: %q", ErrInvalidPlacement, s)
	}
	rankStr, ok := strings.CutPrefix(rankPart, "rank:")
	if !ok {
		return Placement{}, fmt.Errorf("%w: %q", ErrInvalidPlacement, s)
	}
	rank, err := strconv.Atoi(rankStr)
	if err != nil || rank < 0 {
		return Placement{}, fmt.Errorf("%w: %q", ErrInvalidPlacement, s)
	}
	dev, err := tensor.ParseDevice(devPart)
	if err != nil {
		return Placement{}, fmt.Errorf("%w: %q: %w", ErrInvalidPlacement, s, err)
	}
	return Placement{Rank: rank, Device: dev}, nil
}

func (p Placement) String() string {
	return fmt.Sprintf("rank:%d/%s", p.Rank, p.Device)
}

// ChunkShardingSpec splits a tensor into len(Placements) contiguous chunks
// along Dim. Chunk sizes follow ceil division, so trailing placements may
// receive smaller chunks or none at all.
type ChunkShardingSpec struct {
	Dim        int
	Placements []string
}

// Metadata locates one shard inside the global tensor.
type Metadata struct {
	Offsets   []int
	Sizes     []int
	Placement Placement
}

// Shard is a locally materialized piece of a ShardedTensor.
type Shard struct {
	Metadata Metadata
	Tensor   *tensor.Tensor
}
