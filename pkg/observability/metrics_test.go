package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnReset(ctx, &domain.EpisodeEvent{})
	hooks.OnStep(ctx, &domain.EpisodeEvent{Duration: 2 * time.Millisecond})
	hooks.OnStep(ctx, &domain.EpisodeEvent{Err: errors.New("boom")})
	hooks.OnTerminal(ctx, &domain.EpisodeEvent{Reward: []float64{1, 3}})
	hooks.OnRebuild(ctx, &domain.RebuildEvent{Occurrences: 4})
	hooks.OnRebuild(ctx, &domain.RebuildEvent{Err: errors.New("bad")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("reset")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("step")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("terminal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rebuilds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rebuilds.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Occurrences))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StepDuration))

	n, err := testutil.GatherAndCount(reg, "qcal_terminal_reward")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilRegisterer(t *testing.T) {
	m := NewMetrics(nil)
	m.Hooks().OnReset(context.Background(), &domain.EpisodeEvent{})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("reset")))
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, logging.FormatJSON, slog.LevelDebug)
	hooks := domain.ChainHooks(LogHooks(logger), NewMetrics(nil).Hooks())
	ctx := context.Background()

	hooks.OnTerminal(ctx, &domain.EpisodeEvent{EventBase: domain.EventBase{RunID: "run-1"}, Reward: []float64{2}})
	hooks.OnRebuild(ctx, &domain.RebuildEvent{Program: "ctx", Err: errors.New("bad")})

	out := buf.String()
	assert.Contains(t, out, `"msg":"episode_terminal"`)
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"msg":"rebuild_failed"`)
	assert.Contains(t, out, `"err":"bad"`)
}
