package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/ports"
)

const waitDelay = 500 * time.Millisecond

// Request is the JSON document written to the simulator's stdin.
type Request struct {
	RunID      string               `json:"run_id"`
	Seed       int64                `json:"seed"`
	Truncation int                  `json:"truncation"`
	Custom     domain.Program       `json:"custom"`
	Baseline   domain.Program       `json:"baseline"`
	Layout     []domain.LayoutEntry `json:"layout"`
	Target     domain.Target        `json:"target"`
	Actions    [][]float64          `json:"actions"`
}

// Response is the JSON document expected on stdout. A bare array of scores is accepted too.
type Response struct {
	Scores []float64 `json:"scores"`
}

// Executor implements ports.Executor by running an external simulator process per batch.
// Only the configured command is ever executed.
type Executor struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures the executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates a process Executor.
func New(cfg Config, opts ...Option) *Executor {
	e := &Executor{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ports.Executor = (*Executor)(nil)

// Execute writes the request to stdin and parses the scores from stdout.
// Scalar request fields are also exported as QCAL_* environment variables.
func (e *Executor) Execute(ctx context.Context, req ports.ExecutionRequest) ([]float64, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	doc := Request{
		Truncation: req.Truncation.Index,
		Custom:     req.Truncation.Custom,
		Baseline:   req.Truncation.Baseline,
		Layout:     req.Truncation.Layout.Entries(),
		Target:     req.Target,
		Actions:    req.Actions,
	}
	if req.Session != nil {
		doc.RunID = req.Session.RunID()
		doc.Seed = req.Session.Seed()
	}
	input, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.cfg.Command, e.cfg.Args...)
	cmd.Dir = e.cfg.Dir
	// Children of the simulator may hold stdout open after it is killed.
	cmd.WaitDelay = waitDelay

	env := []string{
		"QCAL_RUN_ID=" + doc.RunID,
		"QCAL_SEED=" + strconv.FormatInt(doc.Seed, 10),
		"QCAL_TRUNCATION=" + strconv.Itoa(doc.Truncation),
		"QCAL_BATCH_SIZE=" + strconv.Itoa(len(req.Actions)),
	}
	for k, v := range e.cfg.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("simulator %s failed: %w. Stderr: %s", e.cfg.Command, err, strings.TrimSpace(stderr.String()))
	}
	if stderr.Len() > 0 {
		e.logger.Debug("Simulator stderr", "command", e.cfg.Command, "stderr", strings.TrimSpace(stderr.String()))
	}
	return parseScores(stdout.Bytes())
}

func parseScores(out []byte) ([]float64, error) {
	trimmed := bytes.TrimSpace(out)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var scores []float64
		if err := json.Unmarshal(trimmed, &scores); err != nil {
			return nil, fmt.Errorf("failed to parse simulator output: %w", err)
		}
		return scores, nil
	}
	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse simulator output: %w", err)
	}
	return resp.Scores, nil
}
