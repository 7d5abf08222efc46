package shard

import (
	"fmt"

	"github.com/born-ml/lightning/internal/tensor"
)

// ShardedTensor is a global tensor of which only the current rank's shards
// are held in memory.
type ShardedTensor struct {
	size     tensor.Shape
	spec     ChunkShardingSpec
	rank     int
	metadata []Metadata
	local    []*Shard
}

// Empty creates a zero-filled sharded tensor of the given global size as seen
// from rank.
func Empty(spec ChunkShardingSpec, rank int, size ...int) (*ShardedTensor, error) {
	global := tensor.Shape(size)
	if err := global.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sharded tensor size: %w", err)
	}
	if spec.Dim < 0 || spec.Dim >= len(global) {
		return nil, fmt.Errorf("sharding dim %d out of range for size %v", spec.Dim, global)
	}
	if len(spec.Placements) == 0 {
		return nil, fmt.Errorf("%w: no placements", ErrInvalidPlacement)
	}

	st := &ShardedTensor{size: global.Clone(), spec: spec, rank: rank}

	dimSize := global[spec.Dim]
	chunk := (dimSize + len(spec.Placements) - 1) / len(spec.Placements)
	for i, ps := range spec.Placements {
		placement, err := ParsePlacement(ps)
		if err != nil {
			return nil, err
		}

		start := i * chunk
		if start >= dimSize {
			break
		}
		length := min(chunk, dimSize-start)

		md := Metadata{
			Offsets:   make([]int, len(global)),
			Sizes:     global.Clone(),
			Placement: placement,
		}
		md.Offsets[spec.Dim] = start
		md.Sizes[spec.Dim] = length
		st.metadata = append(st.metadata, md)

		if placement.Rank != rank {
			continue
		}
		t, err := tensor.New(tensor.Shape(md.Sizes), placement.Device)
		if err != nil {
			return nil, err
		}
		st.local = append(st.local, &Shard{Metadata: md, Tensor: t})
	}
	return st, nil
}

// Size returns the global shape.
func (st *ShardedTensor) Size() tensor.Shape {
	return st.size
}

// Rank returns the rank this view was created for.
func (st *ShardedTensor) Rank() int {
	return st.rank
}

// Metadata returns the metadata of every shard, local or remote.
func (st *ShardedTensor) Metadata() []Metadata {
	return st.metadata
}

// LocalShards returns the shards materialized on this rank.
func (st *ShardedTensor) LocalShards() []*Shard {
	return st.local
}

// To moves every local shard to device.
func (st *ShardedTensor) To(device tensor.Device) {
	for _, s := range st.local {
		s.Tensor = s.Tensor.To(device)
		s.Metadata.Placement.Device = device
	}
}

// LocalShape returns the shape of this rank's shards joined along the
// sharding dim. ok is false when the rank holds no shard.
func (st *ShardedTensor) LocalShape() (shape tensor.Shape, ok bool) {
	if len(st.local) == 0 {
		return nil, false
	}
	shape = st.size.Clone()
	shape[st.spec.Dim] = 0
	for _, s := range st.local {
		shape[st.spec.Dim] += s.Metadata.Sizes[st.spec.Dim]
	}
	return shape, true
}

// StateDict returns the local shards joined along the sharding dim, in
// placement order, as one tensor keyed by name. A rank without shards
// contributes nothing.
func (st *ShardedTensor) StateDict(name string) map[string]*tensor.Tensor {
	shape, ok := st.LocalShape()
	if !ok {
		return map[string]*tensor.Tensor{}
	}
	out, err := tensor.New(shape, st.local[0].Tensor.Device())
	if err != nil {
		panic(err)
	}
	st.walk(shape, func(shard, joined []float32) {
		copy(joined, shard)
	}, out.Data())
	return map[string]*tensor.Tensor{name: out}
}

// Keys returns the state-dict keys StateDict would produce.
func (st *ShardedTensor) Keys(name string) []string {
	if len(st.local) == 0 {
		return nil
	}
	return []string{name}
}

// Load splits the entry stored under name back into the local shards. A
// missing entry leaves the shards unchanged; a shape other than LocalShape
// is an error.
func (st *ShardedTensor) Load(name string, stateDict map[string]*tensor.Tensor) error {
	src, ok := stateDict[name]
	if !ok {
		return nil
	}
	shape, ok := st.LocalShape()
	if !ok {
		return fmt.Errorf("sharded tensor %q: rank %d holds no shard", name, st.rank)
	}
	if !src.Shape().Equal(shape) {
		return fmt.Errorf("sharded tensor %q: shape %v, want %v", name, src.Shape(), shape)
	}
	st.walk(shape, func(shard, joined []float32) {
		copy(shard, joined)
	}, src.Data())
	return nil
}

// walk pairs every contiguous run of each local shard with the matching run
// of the joined row-major buffer.
func (st *ShardedTensor) walk(joinedShape tensor.Shape, fn func(shard, joined []float32), joined []float32) {
	dim := st.spec.Dim
	outer := joinedShape[:dim].NumElements()
	inner := joinedShape[dim+1:].NumElements()
	total := joinedShape[dim]

	pos := 0
	for _, s := range st.local {
		n := s.Metadata.Sizes[dim]
		data := s.Tensor.Data()
		for o := range outer {
			start := (o*total + pos) * inner
			fn(data[o*n*inner:(o+1)*n*inner], joined[start:start+n*inner])
		}
		pos += n
	}
}
