package domain

import (
	"fmt"
	"maps"
	"slices"
)

// Program is an ordered instruction sequence over a declared qubit universe.
// Scheduled reports whether the StartTime of every instruction is authoritative.
type Program struct {
	Name         string        `json:"name" yaml:"name"`
	NumQubits    int           `json:"num_qubits" yaml:"num_qubits"`
	Scheduled    bool          `json:"scheduled,omitempty" yaml:"scheduled,omitempty"`
	Instructions []Instruction `json:"instructions" yaml:"instructions"`
}

// Len returns the number of instructions.
func (p Program) Len() int {
	return len(p.Instructions)
}

// At returns a copy of the instruction at index i.
func (p Program) At(i int) Instruction {
	return p.Instructions[i].Clone()
}

// Clone returns a deep copy of the program.
func (p Program) Clone() Program {
	out := p
	out.Instructions = make([]Instruction, len(p.Instructions))
	for i, in := range p.Instructions {
		out.Instructions[i] = in.Clone()
	}
	return out
}

// Validate checks every instruction and that all qubits lie inside the declared universe.
func (p Program) Validate() error {
	if p.NumQubits <= 0 {
		return fmt.Errorf("program %q declares no qubits", p.Name)
	}
	for i, in := range p.Instructions {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
		for _, q := range in.Qubits {
			if q >= p.NumQubits {
				return fmt.Errorf("instruction %d (%s): qubit %d outside universe of %d", i, in.Label(), q, p.NumQubits)
			}
		}
		if in.hasNonFinite() {
			return fmt.Errorf("instruction %d (%s): non-finite parameter", i, in.Label())
		}
		if p.Scheduled && in.StartTime < 0 {
			return fmt.Errorf("instruction %d (%s): negative start time %d", i, in.Label(), in.StartTime)
		}
	}
	return nil
}

// Parameters returns the sorted, distinct names of unbound symbols.
func (p Program) Parameters() []string {
	set := make(map[string]struct{})
	for _, in := range p.Instructions {
		for _, s := range in.Symbols() {
			set[s] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// HasParameter reports whether name appears as a symbol (bound or not).
func (p Program) HasParameter(name string) bool {
	for _, in := range p.Instructions {
		for _, prm := range in.Params {
			if prm.Symbol == name {
				return true
			}
		}
	}
	return false
}

// Assign returns a copy of p with the given symbols bound.
// Names that do not occur in the program yield an UnresolvedParameterError and p is returned unchanged.
func (p Program) Assign(values map[string]float64) (Program, error) {
	var unknown []string
	for name := range values {
		if !p.HasParameter(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return p, &UnresolvedParameterError{Program: p.Name, Names: unknown, Reason: "not found in program"}
	}

	out := p.Clone()
	for i := range out.Instructions {
		for j, prm := range out.Instructions[i].Params {
			if v, ok := values[prm.Symbol]; ok && prm.Symbol != "" {
				out.Instructions[i].Params[j].Value = &v
			}
		}
	}
	return out, nil
}

// RequireBound returns an UnresolvedParameterError when unbound symbols remain.
func (p Program) RequireBound() error {
	if names := p.Parameters(); len(names) > 0 {
		return &UnresolvedParameterError{Program: p.Name, Names: names, Reason: "still unassigned"}
	}
	return nil
}
