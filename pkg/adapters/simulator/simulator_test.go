package simulator_test

import (
	"context"
	"math"
	"testing"

	"github.com/aretw0/qcal/internal/truncation"
	"github.com/aretw0/qcal/pkg/adapters/simulator"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/parametrize"
	"github.com/aretw0/qcal/pkg/ports"
	"github.com/aretw0/qcal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// context: cx(0,1), cx(1,2), cx(0,1) so the second truncation keeps one nearest neighbor.
func build(t *testing.T, dim int) truncation.Result {
	t.Helper()
	p := domain.NewProgramBuilder("ctx", 3).
		Gate("cx", nil, 0, 1).
		Gate("cx", nil, 1, 2).
		Gate("cx", nil, 0, 1).
		Build()
	res, err := truncation.New(parametrize.Gate, truncation.WithParamSize(dim)).
		Build(p, domain.Pattern{Name: "cx", Qubits: []int{0, 1}}, domain.Device{})
	require.NoError(t, err)
	return res
}

func req(res truncation.Result, i int, actions [][]float64) ports.ExecutionRequest {
	return ports.ExecutionRequest{
		Session:    session.New(),
		Truncation: res.Truncations[i],
		Target:     res.Targets[i],
		Actions:    actions,
	}
}

func TestExecute_OptimumScoresOne(t *testing.T) {
	res := build(t, 2)
	sim := simulator.New(simulator.Config{Optimum: []float64{0.5, -0.5}})

	scores, err := sim.Execute(context.Background(), req(res, 0, [][]float64{{0.5, -0.5}, {1.5, -0.5}}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scores[0], 1e-12)
	assert.InDelta(t, math.Exp(-1), scores[1], 1e-12)
}

func TestExecute_InstancesMultiplyAndCrosstalk(t *testing.T) {
	res := build(t, 1)
	sim := simulator.New(simulator.Config{Width: 2, Crosstalk: 0.1})

	scores, err := sim.Execute(context.Background(), req(res, 1, [][]float64{{1, 1}}))
	require.NoError(t, err)
	assert.InDelta(t, 0.9*math.Exp(-0.5)*math.Exp(-0.5), scores[0], 1e-12)
}

func TestExecute_RowLengthChecked(t *testing.T) {
	res := build(t, 2)
	_, err := simulator.New(simulator.Config{}).Execute(context.Background(), req(res, 1, [][]float64{{1, 2}}))
	assert.Error(t, err)
}

func TestExecute_NoiseIsSeeded(t *testing.T) {
	res := build(t, 1)
	sim := simulator.New(simulator.Config{Noise: 0.05, Optimum: []float64{3}})
	r := req(res, 0, [][]float64{{2.5}, {2.5}, {2.5}})

	r.Session.Reseed(11)
	a, err := sim.Execute(context.Background(), r)
	require.NoError(t, err)
	r.Session.Reseed(11)
	b, err := sim.Execute(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	for _, s := range a {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := simulator.DecodeConfig(map[string]any{"optimum": []any{0.1, "0.2"}, "crosstalk": 0.02})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, cfg.Optimum)
	assert.Equal(t, 1.0, cfg.Width)

	_, err = simulator.DecodeConfig(map[string]any{"crosstalk": 1.5})
	assert.Error(t, err)
}
