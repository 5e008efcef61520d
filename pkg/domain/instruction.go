package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// InstructionKind is the closed set of instruction variants.
type InstructionKind string

const (
	// KindPlay plays a named pulse (Name) on the qubit's channel.
	KindPlay InstructionKind = "play"
	// KindShiftPhase rotates the frame of a qubit channel by Params[0].
	KindShiftPhase InstructionKind = "shift_phase"
	// KindShiftFrequency shifts the frame frequency of a qubit channel by Params[0].
	KindShiftFrequency InstructionKind = "shift_frequency"
	// KindDelay idles the qubit for Duration ticks.
	KindDelay InstructionKind = "delay"
	// KindGeneric is any gate-level operation identified by Name.
	KindGeneric InstructionKind = "generic"
)

// Param is an instruction parameter. It is either a literal value or a named symbol,
// which may or may not be bound to a value yet.
type Param struct {
	Symbol string   `json:"symbol,omitempty" yaml:"symbol,omitempty" mapstructure:"symbol"`
	Value  *float64 `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
}

// Lit creates a literal parameter.
func Lit(v float64) Param {
	return Param{Value: &v}
}

// Sym creates an unbound symbolic parameter.
func Sym(name string) Param {
	return Param{Symbol: name}
}

// IsBound reports whether the parameter carries a value.
func (p Param) IsBound() bool {
	return p.Value != nil
}

// Float returns the bound value (0 when unbound).
func (p Param) Float() float64 {
	if p.Value == nil {
		return 0
	}
	return *p.Value
}

// Equal compares symbol and value. NaN values never compare equal.
func (p Param) Equal(o Param) bool {
	if p.Symbol != o.Symbol || p.IsBound() != o.IsBound() {
		return false
	}
	if !p.IsBound() {
		return true
	}
	return *p.Value == *o.Value
}

func (p Param) String() string {
	switch {
	case p.Symbol != "" && p.IsBound():
		return fmt.Sprintf("%s=%g", p.Symbol, *p.Value)
	case p.Symbol != "":
		return p.Symbol
	case p.IsBound():
		return fmt.Sprintf("%g", *p.Value)
	default:
		return "?"
	}
}

// Instruction is a single operation placed in a Program.
// Values are copied in and out of programs, so a placed instruction is never shared.
type Instruction struct {
	Kind      InstructionKind `json:"kind" yaml:"kind"`
	Name      string          `json:"name,omitempty" yaml:"name,omitempty"`
	Qubits    []int           `json:"qubits" yaml:"qubits"`
	Params    []Param         `json:"params,omitempty" yaml:"params,omitempty"`
	StartTime int             `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	Duration  int             `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Clone returns a deep copy of the instruction.
func (in Instruction) Clone() Instruction {
	out := in
	out.Qubits = slices.Clone(in.Qubits)
	if in.Params != nil {
		out.Params = make([]Param, len(in.Params))
		for i, p := range in.Params {
			out.Params[i] = p
			if p.Value != nil {
				v := *p.Value
				out.Params[i].Value = &v
			}
		}
	}
	return out
}

// Validate checks the per-kind shape of the instruction.
func (in Instruction) Validate() error {
	if len(in.Qubits) == 0 {
		return fmt.Errorf("instruction %s has no qubits", in.Label())
	}
	seen := make(map[int]bool, len(in.Qubits))
	for _, q := range in.Qubits {
		if q < 0 {
			return fmt.Errorf("instruction %s: negative qubit %d", in.Label(), q)
		}
		if seen[q] {
			return fmt.Errorf("instruction %s: qubit %d repeated", in.Label(), q)
		}
		seen[q] = true
	}

	switch in.Kind {
	case KindPlay:
		if in.Name == "" {
			return fmt.Errorf("play instruction requires a pulse name")
		}
	case KindShiftPhase, KindShiftFrequency:
		if len(in.Params) != 1 {
			return fmt.Errorf("%s instruction takes exactly one parameter, got %d", in.Kind, len(in.Params))
		}
	case KindDelay:
		if in.Duration < 0 {
			return fmt.Errorf("delay duration must be >= 0, got %d", in.Duration)
		}
	case KindGeneric:
		if in.Name == "" {
			return fmt.Errorf("generic instruction requires an operation name")
		}
	default:
		return fmt.Errorf("unknown instruction kind %q", in.Kind)
	}
	return nil
}

// Touches reports whether the instruction acts on qubit q.
func (in Instruction) Touches(q int) bool {
	return slices.Contains(in.Qubits, q)
}

// Symbols returns the names of the unbound symbolic parameters.
func (in Instruction) Symbols() []string {
	var out []string
	for _, p := range in.Params {
		if p.Symbol != "" && !p.IsBound() {
			out = append(out, p.Symbol)
		}
	}
	return out
}

// Remap returns a copy acting on the qubits given by fn.
func (in Instruction) Remap(fn func(int) int) Instruction {
	out := in.Clone()
	for i, q := range out.Qubits {
		out.Qubits[i] = fn(q)
	}
	return out
}

// Label is a short human readable form, e.g. "cx[0,1]" or "shift_phase(theta)[2]".
func (in Instruction) Label() string {
	var sb strings.Builder
	name := in.Name
	if name == "" {
		name = string(in.Kind)
	} else if in.Kind != KindGeneric && in.Kind != "" {
		name = string(in.Kind) + ":" + name
	}
	sb.WriteString(name)
	if len(in.Params) > 0 {
		parts := make([]string, len(in.Params))
		for i, p := range in.Params {
			parts[i] = p.String()
		}
		sb.WriteString("(" + strings.Join(parts, ",") + ")")
	}
	qs := make([]string, len(in.Qubits))
	for i, q := range in.Qubits {
		qs[i] = fmt.Sprint(q)
	}
	sb.WriteString("[" + strings.Join(qs, ",") + "]")
	return sb.String()
}

// hasNonFinite reports whether a bound parameter is NaN or Inf.
func (in Instruction) hasNonFinite() bool {
	for _, p := range in.Params {
		if p.IsBound() && (math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0)) {
			return true
		}
	}
	return false
}
