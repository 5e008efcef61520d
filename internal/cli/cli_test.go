package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/qcal/internal/cli"
	"github.com/aretw0/qcal/pkg/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainConfig = `
options:
  batch_size: 2
  action_dim: 1
  steps_per_occurrence: 1
seed: 7
target:
  name: cx
  qubits: [0, 1]
context:
  name: chain
  num_qubits: 4
  instructions:
    - {name: h, qubits: [2]}
    - {name: cx, qubits: [0, 1]}
    - {name: cx, qubits: [1, 2]}
    - {name: cx, qubits: [2, 3]}
    - {name: cx, qubits: [0, 1]}
executor:
  kind: simulator
  settings:
    optimum: [0.5]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func load(t *testing.T, body string) *cli.App {
	t.Helper()
	app, err := cli.Load(context.Background(), writeConfig(t, body), cli.BuildOptions{RunID: "run-1", LogOutput: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestLoad_BuildsEnvironment(t *testing.T) {
	app := load(t, chainConfig)

	assert.Equal(t, "run-1", app.Env.RunID())
	assert.Len(t, app.Env.Truncations(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(app.Metrics.Occurrences))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := cli.Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), cli.BuildOptions{LogOutput: io.Discard})
	assert.Error(t, err)
}

func TestBuild_UnknownParametrizer(t *testing.T) {
	cfg, err := config.Parse([]byte(chainConfig), "yaml")
	require.NoError(t, err)
	cfg.Parametrizer.Name = "missing"

	_, err = cli.Build(context.Background(), cfg, cli.BuildOptions{LogOutput: io.Discard})
	assert.ErrorContains(t, err, "parametrizer not found")
}

func TestTrain(t *testing.T) {
	app := load(t, chainConfig)
	var progress bytes.Buffer

	res, err := cli.Train(context.Background(), app, cli.TrainOptions{
		Episodes: 3,
		Mean:     []float64{0.5},
		Std:      []float64{0},
		Progress: &progress,
	})
	require.NoError(t, err)

	assert.Len(t, res.Report.Episodes, 3)
	assert.InDelta(t, -math.Log(1e-6), res.Report.BestReward, 1e-9)
	assert.Equal(t, 3, res.Summary.Episodes)
	assert.Equal(t, 3, strings.Count(progress.String(), "\n"))

	md := cli.ReportMarkdown(res)
	assert.Contains(t, md, "# Training report")
	assert.Contains(t, md, "`run-1`")
	assert.Contains(t, md, "| Episode | Truncation |")
	assert.Contains(t, md, "[0.5000]")
}

func TestTrain_SQLiteHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	app := load(t, chainConfig+"store:\n  kind: sqlite\n  path: "+db+"\n")

	_, err := cli.Train(context.Background(), app, cli.TrainOptions{Episodes: 2, Mean: []float64{0.5}, Std: []float64{0}})
	require.NoError(t, err)

	records, err := app.History.History(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestTrain_InvalidOptions(t *testing.T) {
	app := load(t, chainConfig)
	ctx := context.Background()

	_, err := cli.Train(ctx, app, cli.TrainOptions{Episodes: 0})
	assert.Error(t, err)

	_, err = cli.Train(ctx, app, cli.TrainOptions{Episodes: 1, Mean: []float64{0, 0}})
	assert.ErrorContains(t, err, "action_dim")
}

func TestWriteTruncations(t *testing.T) {
	app := load(t, chainConfig)

	var text bytes.Buffer
	require.NoError(t, cli.WriteTruncations(&text, app, cli.FormatText, -1))
	assert.Contains(t, text.String(), "#0 occurrence 0")
	assert.Contains(t, text.String(), "#1 occurrence 1")

	var raw bytes.Buffer
	require.NoError(t, cli.WriteTruncations(&raw, app, cli.FormatJSON, 1))
	var views []map[string]any
	require.NoError(t, json.Unmarshal(raw.Bytes(), &views))
	require.Len(t, views, 1)
	assert.EqualValues(t, 1, views[0]["index"])
	assert.Contains(t, views[0], "target")

	var mermaid bytes.Buffer
	require.NoError(t, cli.WriteTruncations(&mermaid, app, cli.FormatMermaid, 0))
	assert.True(t, strings.HasPrefix(mermaid.String(), "graph LR"))

	assert.Error(t, cli.WriteTruncations(io.Discard, app, "svg", -1))
	assert.Error(t, cli.WriteTruncations(io.Discard, app, cli.FormatText, 5))
}
