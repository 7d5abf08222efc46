package loggers

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMemoryLogger(t *testing.T) {
	l := NewMemoryLogger("exp", "v0")
	assert.Equal(t, "exp", l.Name())
	assert.Equal(t, "v0", l.Version())

	metrics := map[string]float64{"loss": 1.5}
	require.NoError(t, l.LogMetrics(metrics, 3))
	metrics["loss"] = 99
	require.NoError(t, l.LogHyperparams(map[string]any{"lr": 0.1}))

	records := l.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Step)
	assert.Equal(t, 1.5, records[0].Metrics["loss"], "logger must keep a copy")
	assert.Equal(t, 0.1, l.Hyperparams()["lr"])

	require.NoError(t, l.Finalize())
	assert.True(t, l.Finalized())
	assert.ErrorIs(t, l.LogMetrics(metrics, 4), ErrFinalized)
	assert.ErrorIs(t, l.LogHyperparams(nil), ErrFinalized)
}

func TestCSVLogger_Versions(t *testing.T) {
	root := t.TempDir()

	first, err := NewCSVLogger(CSVConfig{RootDir: root})
	require.NoError(t, err)
	assert.Equal(t, "lightning_logs", first.Name())
	assert.Equal(t, "version_0", first.Version())

	second, err := NewCSVLogger(CSVConfig{RootDir: root})
	require.NoError(t, err)
	assert.Equal(t, "version_1", second.Version())

	named, err := NewCSVLogger(CSVConfig{RootDir: root, Name: "gan", Version: "run-a"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "gan", "run-a"), named.LogDir())
}

func TestCSVLogger_WritesMetricsAndHparams(t *testing.T) {
	l, err := NewCSVLogger(CSVConfig{RootDir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, l.LogMetrics(map[string]float64{"loss": 0.5}, 0))
	require.NoError(t, l.LogMetrics(map[string]float64{"loss": 0.25, "acc": 0.75}, 1))
	require.NoError(t, l.LogHyperparams(map[string]any{"lr": 0.1, "optimizers": 2}))
	require.NoError(t, l.Finalize())
	require.NoError(t, l.Finalize(), "second finalize is a no-op")

	f, err := os.Open(filepath.Join(l.LogDir(), "metrics.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"step", "acc", "loss"},
		{"0", "", "0.5"},
		{"1", "0.75", "0.25"},
	}, rows)

	raw, err := os.ReadFile(filepath.Join(l.LogDir(), "hparams.yaml"))
	require.NoError(t, err)
	var hp map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &hp))
	assert.Equal(t, 0.1, hp["lr"])
	assert.Equal(t, 2, hp["optimizers"])

	assert.ErrorIs(t, l.LogMetrics(map[string]float64{"loss": 1}, 2), ErrFinalized)
}
