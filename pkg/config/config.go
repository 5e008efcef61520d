// Package config loads the environment description from a YAML (or JSON) file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/qcal/internal/runtime"
	"github.com/aretw0/qcal/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Executor kinds.
const (
	ExecutorSimulator = "simulator"
	ExecutorProcess   = "process"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the root of a qcal configuration file.
type Config struct {
	Options      runtime.Options    `yaml:"options" json:"options"`
	Seed         *int64             `yaml:"seed,omitempty" json:"seed,omitempty"`
	Target       domain.Pattern     `yaml:"target" json:"target"`
	Context      ProgramConfig      `yaml:"context" json:"context"`
	Parameters   map[string]float64 `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Device       domain.Device      `yaml:"device" json:"device"`
	Executor     ExecutorConfig     `yaml:"executor" json:"executor"`
	Store        StoreConfig        `yaml:"store" json:"store"`
	Parametrizer ParametrizerConfig `yaml:"parametrizer" json:"parametrizer"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// ProgramConfig describes the context circuit.
type ProgramConfig struct {
	Name         string              `yaml:"name" json:"name"`
	NumQubits    int                 `yaml:"num_qubits" json:"num_qubits"`
	Scheduled    bool                `yaml:"scheduled,omitempty" json:"scheduled,omitempty"`
	Instructions []InstructionConfig `yaml:"instructions" json:"instructions"`
}

// InstructionConfig is one context instruction. Params accept the short forms
// `0.5` (literal) and `theta` (symbol) besides the full {symbol, value} map.
type InstructionConfig struct {
	Kind      domain.InstructionKind `yaml:"kind,omitempty" json:"kind,omitempty"`
	Name      string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Qubits    []int                  `yaml:"qubits" json:"qubits"`
	Params    []ParamConfig          `yaml:"params,omitempty" json:"params,omitempty"`
	StartTime int                    `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	Duration  int                    `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// ExecutorConfig selects the executor. Settings are decoded by the executor package.
type ExecutorConfig struct {
	Kind     string         `yaml:"kind" json:"kind"`
	Settings map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// StoreConfig selects where the training history is kept.
type StoreConfig struct {
	Kind    string `yaml:"kind" json:"kind"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	Prefix  string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	TTL     string `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// ParametrizerConfig names a registered parametrizer and its arguments.
type ParametrizerConfig struct {
	Name string         `yaml:"name" json:"name"`
	Args map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
}

// LoggingConfig sets the log level and format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Default returns a configuration with every optional field filled in.
func Default() Config {
	return Config{
		Options: runtime.Options{
			BatchSize:          1,
			ActionDim:          1,
			StepsPerOccurrence: 1,
			NReps:              1,
		},
		Device:       domain.Device{Durations: domain.DefaultDurations()},
		Executor:     ExecutorConfig{Kind: ExecutorSimulator},
		Store:        StoreConfig{Kind: StoreMemory},
		Parametrizer: ParametrizerConfig{Name: "gate"},
		Logging:      LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file. Files ending in .json are parsed as JSON, anything else as YAML.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	format := "yaml"
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = "json"
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data on top of Default and validates the result.
func Parse(data []byte, format string) (Config, error) {
	cfg := Default()
	switch format {
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the sections that can be checked without building anything.
func (c Config) Validate() error {
	if err := c.Options.Validate(); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if c.Target.Name == "" || len(c.Target.Qubits) == 0 {
		return fmt.Errorf("target: name and qubits are required")
	}
	if err := c.Program().Validate(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	switch c.Executor.Kind {
	case ExecutorSimulator, ExecutorProcess:
	default:
		return fmt.Errorf("executor: unknown kind %q", c.Executor.Kind)
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Address == "" {
			return fmt.Errorf("store: redis requires an address")
		}
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store: sqlite requires a path")
		}
	default:
		return fmt.Errorf("store: unknown kind %q", c.Store.Kind)
	}
	if _, err := c.Store.TTLDuration(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// Program converts the context section into a domain program.
func (c Config) Program() domain.Program {
	p := domain.Program{
		Name:         c.Context.Name,
		NumQubits:    c.Context.NumQubits,
		Scheduled:    c.Context.Scheduled,
		Instructions: make([]domain.Instruction, len(c.Context.Instructions)),
	}
	if p.Name == "" {
		p.Name = "context"
	}
	for i, in := range c.Context.Instructions {
		kind := in.Kind
		if kind == "" {
			kind = domain.KindGeneric
		}
		out := domain.Instruction{
			Kind:      kind,
			Name:      in.Name,
			Qubits:    append([]int(nil), in.Qubits...),
			StartTime: in.StartTime,
			Duration:  in.Duration,
		}
		for _, prm := range in.Params {
			out.Params = append(out.Params, prm.Param())
		}
		p.Instructions[i] = out
	}
	return p
}

// Unbound reports whether the context carries symbols that the parameters section must bind.
func (c Config) Unbound() bool {
	return len(c.Program().Parameters()) > 0
}

// TTLDuration parses the TTL. An empty TTL is zero (no expiry).
func (s StoreConfig) TTLDuration() (time.Duration, error) {
	if s.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q: %w", s.TTL, err)
	}
	return d, nil
}
