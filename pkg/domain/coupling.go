package domain

import (
	"fmt"
	"slices"
)

// CouplingMap is the undirected connectivity graph of a device.
type CouplingMap struct {
	Edges [][2]int `json:"edges" yaml:"edges"`
}

// Size returns one more than the largest qubit index in the map.
func (c CouplingMap) Size() int {
	n := 0
	for _, e := range c.Edges {
		n = max(n, e[0]+1, e[1]+1)
	}
	return n
}

// Neighbors returns the sorted, distinct qubits adjacent to any of the given qubits,
// excluding the inputs themselves.
func (c CouplingMap) Neighbors(qubits []int) []int {
	var out []int
	for _, e := range c.Edges {
		for side := 0; side < 2; side++ {
			a, b := e[side], e[1-side]
			if slices.Contains(qubits, a) && !slices.Contains(qubits, b) {
				out = append(out, b)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Durations resolves instruction durations in ticks.
type Durations struct {
	Default int            `json:"default" yaml:"default"`
	ByName  map[string]int `json:"by_name,omitempty" yaml:"by_name,omitempty"`
}

// DefaultDurations is the table used when a device declares none: every operation takes one tick.
func DefaultDurations() Durations {
	return Durations{Default: 1}
}

// Of returns the duration of an instruction. The instruction's own duration wins,
// then the table entry for its name, then the default. Delays without a duration take 0.
func (d Durations) Of(in Instruction) int {
	if in.Duration > 0 {
		return in.Duration
	}
	if v, ok := d.ByName[in.Name]; ok && in.Name != "" {
		return v
	}
	if in.Kind == KindDelay {
		return 0
	}
	return d.Default
}

// Device describes the hardware a context runs on.
type Device struct {
	Name     string      `json:"name,omitempty" yaml:"name,omitempty"`
	Coupling CouplingMap `json:"coupling" yaml:"coupling"`
	// PhysicalMap maps context qubit i to PhysicalMap[i]. Nil means identity.
	PhysicalMap []int     `json:"physical_map,omitempty" yaml:"physical_map,omitempty"`
	Durations   Durations `json:"durations" yaml:"durations"`
}

// Physical maps a context qubit to a physical qubit.
func (d Device) Physical(q int) int {
	if d.PhysicalMap == nil || q >= len(d.PhysicalMap) {
		return q
	}
	return d.PhysicalMap[q]
}

// Validate checks that the physical map is injective and covers numQubits qubits.
func (d Device) Validate(numQubits int) error {
	if d.PhysicalMap == nil {
		return nil
	}
	if len(d.PhysicalMap) < numQubits {
		return fmt.Errorf("device %q: physical map covers %d qubits, context declares %d", d.Name, len(d.PhysicalMap), numQubits)
	}
	seen := make(map[int]bool, len(d.PhysicalMap))
	for i, p := range d.PhysicalMap {
		if p < 0 {
			return fmt.Errorf("device %q: context qubit %d mapped to negative qubit %d", d.Name, i, p)
		}
		if seen[p] {
			return fmt.Errorf("device %q: physical qubit %d mapped twice", d.Name, p)
		}
		seen[p] = true
	}
	return nil
}
