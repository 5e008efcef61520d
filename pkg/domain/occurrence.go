package domain

import "slices"

// Pattern identifies the target operation inside a context.
// Params are only compared when the pattern specifies any.
type Pattern struct {
	Kind   InstructionKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Name   string          `json:"name" yaml:"name"`
	Qubits []int           `json:"qubits" yaml:"qubits"`
	Params []Param         `json:"params,omitempty" yaml:"params,omitempty"`
}

// Matches reports whether the instruction is an instance of the pattern.
// Qubits are compared as an ordered tuple.
func (p Pattern) Matches(in Instruction) bool {
	kind := p.Kind
	if kind == "" {
		kind = KindGeneric
	}
	if in.Kind != kind || in.Name != p.Name {
		return false
	}
	if !slices.Equal(in.Qubits, p.Qubits) {
		return false
	}
	if len(p.Params) == 0 {
		return true
	}
	return slices.EqualFunc(in.Params, p.Params, Param.Equal)
}

// Occurrence is one position of the target operation within a context.
type Occurrence struct {
	// Ordinal is the position among all occurrences (0-based).
	Ordinal int `json:"ordinal"`
	// Index is the instruction index inside the context program.
	Index     int   `json:"index"`
	StartTime int   `json:"start_time"`
	Qubits    []int `json:"qubits"`
}
