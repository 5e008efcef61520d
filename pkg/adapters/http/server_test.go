package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/qcal"
	"github.com/aretw0/qcal/pkg/adapters/memory"
	"github.com/aretw0/qcal/pkg/adapters/simulator"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/history"
	"github.com/aretw0/qcal/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain() domain.Program {
	return domain.NewProgramBuilder("chain", 3).
		Gate("cx", []domain.Param{domain.Sym("theta")}, 0, 1).
		Gate("cx", nil, 1, 2).
		Gate("x", nil, 0).
		Build()
}

func newTestServer(t *testing.T, withContext bool) (*Server, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	srv := NewServer(nil, WithGatherer(reg))

	env, err := qcal.New(
		simulator.New(simulator.Config{Optimum: []float64{0.5}}),
		domain.Pattern{Name: "x", Qubits: []int{0}},
		qcal.Options{BatchSize: 2, ActionDim: 1, StepsPerOccurrence: 1, NReps: 1},
		qcal.WithLifecycleHooks(domain.ChainHooks(metrics.Hooks(), srv.Hooks())),
		qcal.WithHistory(history.NewManager(memory.NewStore())),
	)
	require.NoError(t, err)
	srv.Env = env
	if withContext {
		require.NoError(t, env.SetUnboundContext(context.Background(), chain(), map[string]float64{"theta": 0.1}))
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_ResetStepState(t *testing.T) {
	_, ts := newTestServer(t, true)

	resp := do(t, http.MethodPost, ts.URL+"/reset", `{"seed": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reset ResetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reset))
	assert.Len(t, reset.Observation, 2)
	assert.EqualValues(t, 1, reset.Info["episode"])

	resp = do(t, http.MethodPost, ts.URL+"/step", `{"actions": [[0.5], [0.5]]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var step domain.StepResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&step))
	assert.True(t, step.Terminated)
	assert.Len(t, step.Reward, 2)

	resp = do(t, http.MethodGet, ts.URL+"/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, 1, state.State.GlobalStep)
	assert.True(t, state.State.Terminated)
	require.NotNil(t, state.BestReward)
	assert.Equal(t, []float64{0.5}, state.OptimalAction)

	resp = do(t, http.MethodGet, ts.URL+"/history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary domain.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.Episodes)
}

func TestServer_Errors(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp := do(t, http.MethodPost, ts.URL+"/reset", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/step", "{")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/targets/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/targets/0", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_BatchMismatch(t *testing.T) {
	_, ts := newTestServer(t, true)

	do(t, http.MethodPost, ts.URL+"/reset", "")
	resp := do(t, http.MethodPost, ts.URL+"/step", `{"actions": [[0.5]]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_TruncationsAndParameters(t *testing.T) {
	srv, ts := newTestServer(t, true)

	resp := do(t, http.MethodGet, ts.URL+"/truncations", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var truncations []domain.Truncation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&truncations))
	require.Len(t, truncations, 1)
	assert.Equal(t, "b_circ0", truncations[0].Baseline.Name)

	resp = do(t, http.MethodGet, ts.URL+"/targets/0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var target domain.Target
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&target))
	assert.Equal(t, "x", target.Gate)
	assert.Equal(t, []int{0}, target.PhysicalQubits)

	resp = do(t, http.MethodPut, ts.URL+"/context/parameters", `{"values": {"theta": 0.7}}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	env := srv.Env.(*qcal.Environment)
	assert.Equal(t, 0.7, env.Context().At(0).Params[0].Float())

	resp = do(t, http.MethodPut, ts.URL+"/context/parameters", `{"values": {"nope": 1}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_InfoHealthMetrics(t *testing.T) {
	_, ts := newTestServer(t, true)

	resp := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/info", "")
	var info map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "qcal-http", info["app"])
	assert.Equal(t, strings.TrimSpace(qcal.Version), info["version"])

	resp = do(t, http.MethodOptions, ts.URL+"/step", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = do(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body strings.Builder
	_, err := bufio.NewReader(resp.Body).WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "qcal_rebuilds_total")
}

func TestServer_Events(t *testing.T) {
	srv, ts := newTestServer(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?type=terminal", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	// skip "data: connected" and the blank line
	_, _ = reader.ReadString('\n')
	_, _ = reader.ReadString('\n')

	// Wait until the subscription is registered before stepping.
	require.Eventually(t, func() bool {
		srv.Streams.mu.RLock()
		defer srv.Streams.mu.RUnlock()
		return len(srv.Streams.subscribers) == 1
	}, time.Second, 10*time.Millisecond)

	env := srv.Env.(*qcal.Environment)
	_, _, err = env.Reset(ctx, nil)
	require.NoError(t, err)
	_, err = env.Step(ctx, [][]float64{{0.5}, {0.5}})
	require.NoError(t, err)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))
	assert.Contains(t, line, `"type":"terminal"`)
}
