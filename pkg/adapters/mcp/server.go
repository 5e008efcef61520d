// Package mcp exposes an environment as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/qcal"
	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StepResponse is the structured result of the reset and step tools.
type StepResponse struct {
	Observation []float64           `json:"observation" jsonschema_description:"Observation for the next action"`
	Reward      []float64           `json:"reward,omitempty" jsonschema_description:"Shaped reward per batch element"`
	Terminated  bool                `json:"terminated" jsonschema_description:"Whether the episode ended"`
	State       domain.EpisodeState `json:"state" jsonschema_description:"Episode state after the call"`
}

// AssignResponse reports the number of truncations after a rebuild.
type AssignResponse struct {
	Truncations int `json:"truncations"`
}

// StateResponse is the structured result of the get_state tool.
type StateResponse struct {
	RunID         string              `json:"run_id"`
	State         domain.EpisodeState `json:"state"`
	EpisodeLength int                 `json:"episode_length"`
	BestReward    *float64            `json:"best_reward,omitempty"`
	OptimalAction []float64           `json:"optimal_action,omitempty"`
}

// Environment is the part of qcal.Environment exposed as tools.
type Environment interface {
	Reset(ctx context.Context, seed *int64) ([]float64, map[string]any, error)
	Step(ctx context.Context, actions [][]float64) (domain.StepResult, error)
	State() domain.EpisodeState
	EpisodeLength() int
	BestReward() float64
	OptimalAction() []float64
	Truncations() []domain.Truncation
	Target(i int) (domain.Target, error)
	AssignParameters(ctx context.Context, values map[string]float64) error
	RunID() string
}

var _ Environment = (*qcal.Environment)(nil)

// Server wraps an Environment and exposes it as an MCP server.
type Server struct {
	env       Environment
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server instance.
func NewServer(env Environment, opts ...Option) *Server {
	s := &Server{
		env:       env,
		mcpServer: server.NewMCPServer("qcal-mcp", strings.TrimSpace(qcal.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Start a new calibration episode and return the first observation."),
		mcp.WithNumber("seed", mcp.Description("Seed for the simulation session (optional)")),
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("step",
		mcp.WithDescription("Submit one action batch. The episode ends after one batch per target instance of the selected truncation."),
		mcp.WithString("actions", mcp.Required(), mcp.Description("JSON array of batch rows, each a JSON array of action values")),
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleStep))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the episode state, the best reward and the action that reached it."),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleState))

	s.mcpServer.AddTool(mcp.NewTool("get_truncations",
		mcp.WithDescription("List the truncated programs derived for every occurrence of the target."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.env.Truncations())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("get_target",
		mcp.WithDescription("Get the target descriptor (physical qubits, neighbors, baseline) of one occurrence."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Occurrence index")),
		mcp.WithOutputSchema[domain.Target](),
	), mcp.NewStructuredToolHandler(s.handleTarget))

	s.mcpServer.AddTool(mcp.NewTool("assign_parameters",
		mcp.WithDescription("Bind values to the symbolic parameters of the context and rebuild the truncations."),
		mcp.WithString("values", mcp.Required(), mcp.Description("JSON object mapping parameter names to values")),
		mcp.WithOutputSchema[AssignResponse](),
	), mcp.NewStructuredToolHandler(s.handleAssign))
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	var seed *int64
	if v, ok := args["seed"].(float64); ok {
		n := int64(v)
		seed = &n
	}
	obs, _, err := s.env.Reset(ctx, seed)
	if err != nil {
		return StepResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return StepResponse{Observation: obs, State: s.env.State()}, nil
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	raw, _ := args["actions"].(string)
	var actions [][]float64
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		s.logger.Warn("MCP Step: invalid actions", "err", err)
		return StepResponse{}, fmt.Errorf("invalid actions: %w", err)
	}
	res, err := s.env.Step(ctx, actions)
	if err != nil {
		return StepResponse{}, fmt.Errorf("step failed: %w", err)
	}
	return StepResponse{
		Observation: res.Observation,
		Reward:      res.Reward,
		Terminated:  res.Terminated,
		State:       s.env.State(),
	}, nil
}

func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	resp := StateResponse{
		RunID:         s.env.RunID(),
		State:         s.env.State(),
		EpisodeLength: s.env.EpisodeLength(),
		OptimalAction: s.env.OptimalAction(),
	}
	if best := s.env.BestReward(); !math.IsInf(best, 0) {
		resp.BestReward = &best
	}
	return resp, nil
}

func (s *Server) handleTarget(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Target, error) {
	index, ok := args["index"].(float64)
	if !ok {
		return domain.Target{}, fmt.Errorf("index must be a number")
	}
	return s.env.Target(int(index))
}

func (s *Server) handleAssign(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (AssignResponse, error) {
	raw, _ := args["values"].(string)
	var values map[string]float64
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return AssignResponse{}, fmt.Errorf("invalid values: %w", err)
	}
	if err := s.env.AssignParameters(ctx, values); err != nil {
		return AssignResponse{}, err
	}
	return AssignResponse{Truncations: len(s.env.Truncations())}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("qcal://truncations", "Truncated programs of the current context",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.env.Truncations())
		if err != nil {
			return nil, fmt.Errorf("failed to encode truncations: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "qcal://truncations",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
