package lightning

import (
	"fmt"
	"maps"
	"slices"

	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/shard"
	"github.com/born-ml/lightning/internal/tensor"
)

// LoadResult lists the keys a LoadStateDict call could not match.
type LoadResult struct {
	MissingKeys    []string
	UnexpectedKeys []string
}

// NamedParameters returns every parameter reachable from m with its dotted
// path. A parameter shared between layers is listed once, under the first
// name it is reached by.
func (m *Module) NamedParameters() []nn.NamedParameter {
	seen := make(map[*nn.Parameter]struct{})
	var out []nn.NamedParameter
	m.walkParameters("", func(np nn.NamedParameter) {
		if _, dup := seen[np.Param]; dup {
			return
		}
		seen[np.Param] = struct{}{}
		out = append(out, np)
	})
	return out
}

// Parameters returns every distinct parameter reachable from m.
func (m *Module) Parameters() []*nn.Parameter {
	named := m.NamedParameters()
	out := make([]*nn.Parameter, len(named))
	for i, np := range named {
		out[i] = np.Param
	}
	return out
}

func (m *Module) walkParameters(prefix string, fn func(nn.NamedParameter)) {
	for _, l := range m.layers {
		for _, np := range nn.NamedParameters(join(prefix, l.name), l.layer) {
			fn(np)
		}
	}
	for _, c := range m.children {
		c.module.walkParameters(join(prefix, c.name), fn)
	}
}

// Device returns the device the module was last moved to.
func (m *Module) Device() tensor.Device {
	return m.device
}

// To moves every parameter, buffer and local shard, including those of
// nested modules, to device.
func (m *Module) To(device tensor.Device) {
	for _, p := range m.Parameters() {
		p.To(device)
	}
	m.moveOwned(device)
}

func (m *Module) moveOwned(device tensor.Device) {
	for _, b := range m.buffers {
		b.tensor = b.tensor.To(device)
	}
	for _, s := range m.sharded {
		s.st.To(device)
	}
	for _, c := range m.children {
		c.module.moveOwned(device)
	}
	m.device = device
}

// StateDict snapshots parameters, buffers and local shards. The returned
// tensors are copies.
func (m *Module) StateDict() map[string]*tensor.Tensor {
	out := make(map[string]*tensor.Tensor)
	for _, np := range m.NamedParameters() {
		out[np.Name] = np.Param.Tensor().Clone()
	}
	m.walkOwned("", func(prefix string, mod *Module) {
		for _, b := range mod.buffers {
			out[join(prefix, b.name)] = b.tensor.Clone()
		}
		for _, s := range mod.sharded {
			maps.Copy(out, s.st.StateDict(join(prefix, s.name)))
		}
	})
	return out
}

func (m *Module) walkOwned(prefix string, fn func(prefix string, mod *Module)) {
	fn(prefix, m)
	for _, c := range m.children {
		c.module.walkOwned(join(prefix, c.name), fn)
	}
}

// LoadStateDict copies values from stateDict into the module.
//
// With strict set, any missing or unexpected key fails the whole load before
// anything is written. Otherwise matching keys are loaded and the rest are
// reported in the result. A shape mismatch on a matched key is always an
// error.
func (m *Module) LoadStateDict(stateDict map[string]*tensor.Tensor, strict bool) (LoadResult, error) {
	type target struct {
		name string
		dst  *tensor.Tensor
	}
	var targets []target
	for _, np := range m.NamedParameters() {
		targets = append(targets, target{np.Name, np.Param.Tensor()})
	}

	type shardTarget struct {
		prefix string
		st     *shard.ShardedTensor
	}
	var shards []shardTarget
	expected := make(map[string]struct{})
	m.walkOwned("", func(prefix string, mod *Module) {
		for _, b := range mod.buffers {
			targets = append(targets, target{join(prefix, b.name), b.tensor})
		}
		for _, s := range mod.sharded {
			name := join(prefix, s.name)
			shards = append(shards, shardTarget{name, s.st})
			for _, k := range s.st.Keys(name) {
				expected[k] = struct{}{}
			}
		}
	})
	for _, t := range targets {
		expected[t.name] = struct{}{}
	}

	var res LoadResult
	for k := range expected {
		if _, ok := stateDict[k]; !ok {
			res.MissingKeys = append(res.MissingKeys, k)
		}
	}
	for k := range stateDict {
		if _, ok := expected[k]; !ok {
			res.UnexpectedKeys = append(res.UnexpectedKeys, k)
		}
	}
	slices.Sort(res.MissingKeys)
	slices.Sort(res.UnexpectedKeys)

	if strict && (len(res.MissingKeys) > 0 || len(res.UnexpectedKeys) > 0) {
		return res, fmt.Errorf("%w: missing keys %q, unexpected keys %q",
			ErrStateDictMismatch, res.MissingKeys, res.UnexpectedKeys)
	}

	for _, t := range targets {
		src, ok := stateDict[t.name]
		if !ok {
			continue
		}
		if err := t.dst.CopyFrom(src); err != nil {
			return res, fmt.Errorf("loading %q: %w", t.name, err)
		}
	}
	for _, s := range shards {
		if err := s.st.Load(s.prefix, stateDict); err != nil {
			return res, err
		}
	}
	return res, nil
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
