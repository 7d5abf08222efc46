package lightning_test

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/loggers"
	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/shard"
	"github.com/born-ml/lightning/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// boringModel is the smallest useful model: one Linear layer.
type boringModel struct {
	lightning.Module
	layer *nn.Linear
}

func newBoringModel() *boringModel {
	m := &boringModel{layer: nn.NewLinear(32, 2, newRNG())}
	m.RegisterLayer("layer", m.layer)
	return m
}

func TestModule_ZeroValueUsable(t *testing.T) {
	var m lightning.Module
	assert.Empty(t, m.Parameters())
	assert.Empty(t, m.StateDict())
	assert.Equal(t, tensor.HostDevice, m.Device())

	assert.NotNil(t, lightning.NewModule())
}

func TestModule_PropertiesDelegateToTrainer(t *testing.T) {
	model := newBoringModel()

	assert.Equal(t, 0, model.CurrentEpoch())
	assert.Equal(t, 0, model.GlobalStep())
	assert.Equal(t, 0, model.GlobalRank())
	assert.Equal(t, 0, model.LocalRank())

	model.SetTrainer(&mockTrainer{epoch: 123, step: 124, globalRank: 125, localRank: 126})

	assert.Equal(t, 123, model.CurrentEpoch())
	assert.Equal(t, 124, model.GlobalStep())
	assert.Equal(t, 125, model.GlobalRank())
	assert.Equal(t, 126, model.LocalRank())
}

func TestModule_Loggers(t *testing.T) {
	model := newBoringModel()
	assert.Nil(t, model.Logger())
	assert.NotNil(t, model.Loggers())
	assert.Empty(t, model.Loggers())

	model.SetTrainer(&mockTrainer{})
	assert.Nil(t, model.Logger())
	assert.Empty(t, model.Loggers())

	l := loggers.NewMemoryLogger("exp", "0")
	model.SetTrainer(&mockTrainer{loggers: []loggers.Logger{l}})
	assert.Same(t, l, model.Logger())
	assert.Equal(t, []loggers.Logger{l}, model.Loggers())

	l0 := loggers.NewMemoryLogger("exp", "0")
	l1 := loggers.NewMemoryLogger("exp", "1")
	model.SetTrainer(&mockTrainer{loggers: []loggers.Logger{l0, l1}})
	assert.Same(t, l0, model.Logger())
	assert.Equal(t, []loggers.Logger{l0, l1}, model.Loggers())
}

func TestModule_Log(t *testing.T) {
	model := newBoringModel()
	require.NoError(t, model.Log("loss", 1), "logging without a trainer is a no-op")

	l0 := loggers.NewMemoryLogger("exp", "0")
	l1 := loggers.NewMemoryLogger("exp", "1")
	model.SetTrainer(&mockTrainer{step: 7, loggers: []loggers.Logger{l0, l1}})

	require.NoError(t, model.Log("loss", 0.5))
	for _, l := range []*loggers.MemoryLogger{l0, l1} {
		records := l.Records()
		require.Len(t, records, 1)
		assert.Equal(t, 7, records[0].Step)
		assert.Equal(t, 0.5, records[0].Metrics["loss"])
	}

	require.NoError(t, l1.Finalize())
	assert.ErrorIs(t, model.Log("loss", 0.1), loggers.ErrFinalized)
}

func TestModule_TrainerReferenceRecursive(t *testing.T) {
	ensemble := lightning.NewModule()
	inner := lightning.NewModule()
	ensemble.RegisterModule("inner", inner)

	_, err := inner.Trainer()
	assert.ErrorIs(t, err, lightning.ErrNotAttached)
	_, err = ensemble.Trainer()
	require.ErrorIs(t, err, lightning.ErrNotAttached)
	assert.Contains(t, err.Error(), "attached to a `Trainer")

	trainer := &mockTrainer{}
	ensemble.SetTrainer(trainer)

	got, err := inner.Trainer()
	require.NoError(t, err)
	assert.Same(t, trainer, got)

	// Modules nested after attachment pick the trainer up too.
	late := lightning.NewModule()
	ensemble.RegisterModule("late", late)
	got, err = late.Trainer()
	require.NoError(t, err)
	assert.Same(t, trainer, got)

	ensemble.SetTrainer(nil)
	_, err = inner.Trainer()
	assert.ErrorIs(t, err, lightning.ErrNotAttached)
}

func TestModule_RegistrationPanics(t *testing.T) {
	m := lightning.NewModule()
	m.RegisterLayer("a", nn.NewReLU())

	assert.Panics(t, func() { m.RegisterBuffer("a", tensor.Zeros(tensor.Shape{1})) })
	assert.Panics(t, func() { m.RegisterLayer("", nn.NewReLU()) })
	assert.Panics(t, func() { m.RegisterModule("self", m) })
}

func TestModule_NamedParametersDeduplicatesShared(t *testing.T) {
	rng := newRNG()
	shared := nn.NewLinear(2, 2, rng)

	m := lightning.NewModule()
	m.RegisterLayer("a", nn.NewSequential(shared, nn.NewReLU()))
	m.RegisterLayer("b", shared)

	child := lightning.NewModule()
	child.RegisterLayer("head", nn.NewLinear(2, 1, rng))
	m.RegisterModule("child", child)

	var names []string
	for _, np := range m.NamedParameters() {
		names = append(names, np.Name)
	}
	assert.Equal(t, []string{"a.0.weight", "a.0.bias", "child.head.weight", "child.head.bias"}, names)
	assert.Len(t, m.Parameters(), 4)
}

func TestModule_DevicePlacement(t *testing.T) {
	model := newBoringModel()
	model.RegisterBuffer("running_mean", tensor.Zeros(tensor.Shape{2}))
	child := lightning.NewModule()
	child.RegisterLayer("head", nn.NewLinear(2, 1, newRNG()))
	model.RegisterModule("child", child)

	assertDevice := func(device tensor.Device) {
		t.Helper()
		assert.Equal(t, device, model.Device())
		assert.Equal(t, device, child.Device())
		for _, p := range model.Parameters() {
			assert.Equal(t, device, p.Device(), p.Name())
		}
		assert.Equal(t, device, model.Buffer("running_mean").Device())
	}

	assertDevice(tensor.HostDevice)

	cuda := tensor.MustParseDevice("cuda:0")
	model.To(cuda)
	assertDevice(cuda)

	out := model.layer.Forward(tensor.Zeros(tensor.Shape{1, 32}).To(cuda))
	assert.Equal(t, cuda, out.Device())

	model.To(tensor.HostDevice)
	assertDevice(tensor.HostDevice)
	assert.Nil(t, model.Buffer("missing"))
}

type shardedModel struct {
	boringModel
	st *shard.ShardedTensor
}

func newShardedModel(t *testing.T, spec shard.ChunkShardingSpec) *shardedModel {
	t.Helper()
	st, err := shard.Empty(spec, 0, 10, 20)
	require.NoError(t, err)
	st.LocalShards()[0].Tensor.Fill(0)

	m := &shardedModel{boringModel: *newBoringModel(), st: st}
	m.RegisterShardedTensor("sharded_tensor", st)
	return m
}

func TestModule_ShardedTensorStateDict(t *testing.T) {
	spec := shard.ChunkShardingSpec{Dim: 0, Placements: []string{"rank:0/cpu"}}

	m0 := newShardedModel(t, spec)
	m0.st.LocalShards()[0].Tensor.Fill(1)

	sd := m0.StateDict()
	require.Contains(t, sd, "sharded_tensor")
	assert.Equal(t, tensor.Shape{10, 20}, sd["sharded_tensor"].Shape())

	m1 := newShardedModel(t, spec)
	assert.False(t, m1.st.LocalShards()[0].Tensor.AllClose(m0.st.LocalShards()[0].Tensor, 1e-5, 1e-8),
		"shards differ before loading")

	res, err := m1.LoadStateDict(m0.StateDict(), false)
	require.NoError(t, err)
	assert.Empty(t, res.MissingKeys)
	assert.Empty(t, res.UnexpectedKeys)
	assert.True(t, m1.st.LocalShards()[0].Tensor.AllClose(m0.st.LocalShards()[0].Tensor, 1e-5, 1e-8),
		"shards match after loading")

	m2 := newShardedModel(t, spec)
	_, err = m2.LoadStateDict(sd, true)
	require.NoError(t, err, "the registered name is an expected key under strict loading")
	assert.True(t, m2.st.LocalShards()[0].Tensor.AllClose(m0.st.LocalShards()[0].Tensor, 1e-5, 1e-8))
}

func TestModule_LoadStateDictStrictness(t *testing.T) {
	src := newBoringModel()
	dst := newBoringModel()
	src.layer.Weight().Tensor().Fill(3)

	sd := src.StateDict()
	sd["extra"] = tensor.Zeros(tensor.Shape{1})
	delete(sd, "layer.bias")

	res, err := dst.LoadStateDict(sd, true)
	require.ErrorIs(t, err, lightning.ErrStateDictMismatch)
	assert.Equal(t, []string{"layer.bias"}, res.MissingKeys)
	assert.Equal(t, []string{"extra"}, res.UnexpectedKeys)
	assert.NotEqual(t, float32(3), dst.layer.Weight().Tensor().Data()[0], "strict failure writes nothing")

	res, err = dst.LoadStateDict(sd, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"layer.bias"}, res.MissingKeys)
	assert.Equal(t, float32(3), dst.layer.Weight().Tensor().Data()[0])

	bad := src.StateDict()
	bad["layer.weight"] = tensor.Zeros(tensor.Shape{1})
	_, err = dst.LoadStateDict(bad, false)
	assert.Error(t, err)
}

func TestModule_StateDictIsSnapshot(t *testing.T) {
	m := newBoringModel()
	sd := m.StateDict()
	require.Contains(t, sd, "layer.weight")

	m.layer.Weight().Tensor().Fill(42)
	assert.NotEqual(t, float32(42), sd["layer.weight"].Data()[0])
}
