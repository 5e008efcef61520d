package process

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/ports"
	"github.com/aretw0/qcal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T, script string) Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fixtures require sh")
	}
	return Config{Command: "sh", Args: []string{"-c", script}}
}

func request() ports.ExecutionRequest {
	return ports.ExecutionRequest{
		Session:    session.New(session.WithRunID("r1"), session.WithSeed(3)),
		Truncation: domain.Truncation{Index: 2},
		Actions:    [][]float64{{0.1}, {0.2}},
	}
}

func TestExecutor_Execute(t *testing.T) {
	t.Run("Parses Bare Array", func(t *testing.T) {
		e := New(shell(t, `cat > /dev/null; echo "[0.5, 0.25]"`))
		scores, err := e.Execute(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, []float64{0.5, 0.25}, scores)
	})

	t.Run("Parses Response Object", func(t *testing.T) {
		e := New(shell(t, `cat > /dev/null; echo '{"scores": [1, 0]}'`))
		scores, err := e.Execute(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0}, scores)
	})

	t.Run("Passes Request via Stdin", func(t *testing.T) {
		e := New(shell(t, `grep -q '"run_id":"r1"' && echo "[1, 1]" || echo "[0, 0]"`))
		scores, err := e.Execute(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 1}, scores)
	})

	t.Run("Passes Scalars via Env Vars", func(t *testing.T) {
		cfg := shell(t, `cat > /dev/null; echo "[$QCAL_TRUNCATION, $QCAL_SEED, $EXTRA]"`)
		cfg.Environment = map[string]string{"EXTRA": "7"}
		scores, err := New(cfg).Execute(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 3, 7}, scores)
	})

	t.Run("Reports Failures With Stderr", func(t *testing.T) {
		e := New(shell(t, `cat > /dev/null; echo "no backend" >&2; exit 3`))
		_, err := e.Execute(context.Background(), request())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no backend")
	})

	t.Run("Rejects Garbage Output", func(t *testing.T) {
		e := New(shell(t, `cat > /dev/null; echo "fidelity: high"`))
		_, err := e.Execute(context.Background(), request())
		assert.ErrorContains(t, err, "failed to parse simulator output")
	})

	t.Run("Honors Timeout", func(t *testing.T) {
		cfg := shell(t, `sleep 5`)
		cfg.Timeout = 50 * time.Millisecond
		start := time.Now()
		_, err := New(cfg).Execute(context.Background(), request())
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(map[string]any{
		"command": "python3",
		"args":    []any{"sim.py", "--fast"},
		"timeout": "2s",
		"env":     map[string]any{"OMP_NUM_THREADS": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "python3", cfg.Command)
	assert.Equal(t, []string{"sim.py", "--fast"}, cfg.Args)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "1", cfg.Environment["OMP_NUM_THREADS"])

	_, err = DecodeConfig(map[string]any{})
	assert.Error(t, err)
}
