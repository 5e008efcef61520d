package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/qcal"
	"github.com/aretw0/qcal/pkg/adapters/simulator"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv(t *testing.T) *qcal.Environment {
	t.Helper()
	env, err := qcal.New(
		simulator.New(simulator.Config{Optimum: []float64{0.5}}),
		domain.Pattern{Name: "x", Qubits: []int{0}},
		qcal.Options{BatchSize: 1, ActionDim: 1, StepsPerOccurrence: 1, NReps: 1},
	)
	require.NoError(t, err)
	program := domain.NewProgramBuilder("ctx", 2).
		Gate("rz", []domain.Param{domain.Sym("phi")}, 0).
		Gate("x", nil, 0).
		Gate("cx", nil, 0, 1).
		Gate("x", nil, 0).
		Build()
	require.NoError(t, env.SetUnboundContext(context.Background(), program, map[string]float64{"phi": 0}))
	return env
}

func TestServer_ResetAndStep(t *testing.T) {
	s := NewServer(newEnv(t))
	ctx := context.Background()

	reset, err := s.handleReset(ctx, mcp.CallToolRequest{}, map[string]interface{}{"seed": float64(4)})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, reset.Observation)
	assert.Equal(t, 1, reset.State.Episode)

	step, err := s.handleStep(ctx, mcp.CallToolRequest{}, map[string]interface{}{"actions": "[[0.5]]"})
	require.NoError(t, err)
	assert.True(t, step.Terminated)
	require.Len(t, step.Reward, 1)
	assert.Greater(t, step.Reward[0], 13.0)

	state, err := s.handleState(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, state.State.GlobalStep)
	require.NotNil(t, state.BestReward)
}

func TestServer_StepErrors(t *testing.T) {
	s := NewServer(newEnv(t))
	ctx := context.Background()

	_, err := s.handleStep(ctx, mcp.CallToolRequest{}, map[string]interface{}{"actions": "not json"})
	assert.Error(t, err)

	_, err = s.handleReset(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	_, err = s.handleStep(ctx, mcp.CallToolRequest{}, map[string]interface{}{"actions": "[[0.5],[0.5]]"})
	assert.ErrorIs(t, err, domain.ErrBatchSizeMismatch)
}

func TestServer_StateBeforeEpisode(t *testing.T) {
	s := NewServer(newEnv(t))
	state, err := s.handleState(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Nil(t, state.BestReward)
	assert.Equal(t, 1, state.EpisodeLength)
}

func TestServer_TargetAndParameters(t *testing.T) {
	env := newEnv(t)
	s := NewServer(env)
	ctx := context.Background()

	target, err := s.handleTarget(ctx, mcp.CallToolRequest{}, map[string]interface{}{"index": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, "x", target.Gate)
	assert.Equal(t, []int{0}, target.PhysicalQubits)

	_, err = s.handleTarget(ctx, mcp.CallToolRequest{}, map[string]interface{}{"index": float64(5)})
	assert.Error(t, err)
	_, err = s.handleTarget(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	assert.Error(t, err)

	res, err := s.handleAssign(ctx, mcp.CallToolRequest{}, map[string]interface{}{"values": `{"phi": 1.25}`})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Truncations)
	assert.Equal(t, 1.25, env.Context().At(0).Params[0].Float())

	_, err = s.handleAssign(ctx, mcp.CallToolRequest{}, map[string]interface{}{"values": `{"psi": 1}`})
	assert.ErrorIs(t, err, domain.ErrUnresolvedParameter)
}

func TestServer_ListTools(t *testing.T) {
	s := NewServer(newEnv(t))
	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := s.mcpServer.HandleMessage(context.Background(), msg)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"reset", "step", "get_state", "get_truncations", "get_target", "assign_parameters"} {
		assert.Contains(t, string(data), `"name":"`+name+`"`)
	}
}
