package domain

import (
	"errors"
	"fmt"
)

// QubitRole determines which local register a context qubit is assigned to.
type QubitRole int

const (
	RoleTarget QubitRole = iota
	RoleNearestNeighbor
	RoleNextNeighbor
)

var roleNames = [...]string{"target", "nearest-neighbor", "next-neighbor"}

// Register names used for the local registers of a truncation.
var registerNames = [...]string{"tgt", "nn", "anc"}

func (r QubitRole) String() string {
	if r < RoleTarget || r > RoleNextNeighbor {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// RegisterName returns the local register name for the role.
func (r QubitRole) RegisterName() string {
	if r < RoleTarget || r > RoleNextNeighbor {
		return ""
	}
	return registerNames[r]
}

// Register is a named group of local qubit indices.
type Register struct {
	Name   string `json:"name"`
	Qubits []int  `json:"qubits"`
}

// Size returns the number of qubits in the register.
func (r Register) Size() int {
	return len(r.Qubits)
}

// MappingEntry records where one context qubit lives inside a truncation.
// Local is the qubit index in the truncated programs; Slot is the index inside the role register.
type MappingEntry struct {
	Context int       `json:"context"`
	Role    QubitRole `json:"role"`
	Slot    int       `json:"slot"`
	Local   int       `json:"local"`
}

// QubitMapping is the frozen context-qubit assignment of one truncation.
// Entries are ordered by Local index.
type QubitMapping struct {
	entries []MappingEntry
	index   map[int]int
	sizes   [3]int
}

// Len returns the number of mapped qubits.
func (m QubitMapping) Len() int {
	return len(m.entries)
}

// Lookup returns the entry for a context qubit.
func (m QubitMapping) Lookup(contextQubit int) (MappingEntry, bool) {
	i, ok := m.index[contextQubit]
	if !ok {
		return MappingEntry{}, false
	}
	return m.entries[i], true
}

// Local returns the local index of a context qubit.
func (m QubitMapping) Local(contextQubit int) (int, bool) {
	e, ok := m.Lookup(contextQubit)
	return e.Local, ok
}

// Entries returns a copy of all entries ordered by local index.
func (m QubitMapping) Entries() []MappingEntry {
	out := make([]MappingEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// RegisterSize returns the number of slots allocated for a role.
func (m QubitMapping) RegisterSize(role QubitRole) int {
	if role < RoleTarget || role > RoleNextNeighbor {
		return 0
	}
	return m.sizes[role]
}

// Register returns the local indices of a role's slots, in slot order.
func (m QubitMapping) Register(role QubitRole) Register {
	reg := Register{Name: role.RegisterName(), Qubits: make([]int, m.RegisterSize(role))}
	for _, e := range m.entries {
		if e.Role == role {
			reg.Qubits[e.Slot] = e.Local
		}
	}
	return reg
}

// ContextQubits returns the context qubits of a role, in slot order.
func (m QubitMapping) ContextQubits(role QubitRole) []int {
	out := make([]int, m.RegisterSize(role))
	for _, e := range m.entries {
		if e.Role == role {
			out[e.Slot] = e.Context
		}
	}
	return out
}

// ErrMappingFrozen is returned when a frozen builder is modified.
var ErrMappingFrozen = errors.New("qubit mapping is frozen")

// MappingBuilder builds a QubitMapping for one occurrence.
// The target qubits take the first slots; other qubits get a fresh slot in their role register
// the first time they are assigned and keep it for the rest of the build.
type MappingBuilder struct {
	entries []MappingEntry
	index   map[int]int
	sizes   [3]int
	frozen  bool
}

// NewMappingBuilder seeds the target register with the given context qubits.
func NewMappingBuilder(targets []int) (*MappingBuilder, error) {
	b := &MappingBuilder{index: make(map[int]int)}
	for _, q := range targets {
		if _, dup := b.index[q]; dup {
			return nil, fmt.Errorf("target qubit %d listed twice", q)
		}
		b.add(q, RoleTarget)
	}
	return b, nil
}

func (b *MappingBuilder) add(q int, role QubitRole) MappingEntry {
	e := MappingEntry{Context: q, Role: role, Slot: b.sizes[role], Local: len(b.entries)}
	b.sizes[role]++
	b.index[q] = len(b.entries)
	b.entries = append(b.entries, e)
	return e
}

// Has reports whether the qubit is already mapped.
func (b *MappingBuilder) Has(q int) bool {
	_, ok := b.index[q]
	return ok
}

// Role returns the role of a mapped qubit.
func (b *MappingBuilder) Role(q int) (QubitRole, bool) {
	i, ok := b.index[q]
	if !ok {
		return 0, false
	}
	return b.entries[i].Role, true
}

// Local returns the local index of a mapped qubit.
func (b *MappingBuilder) Local(q int) (int, bool) {
	i, ok := b.index[q]
	if !ok {
		return 0, false
	}
	return b.entries[i].Local, true
}

// Assign maps q with the given role. An already mapped qubit keeps its entry and
// fresh is false.
func (b *MappingBuilder) Assign(q int, role QubitRole) (entry MappingEntry, fresh bool, err error) {
	if b.frozen {
		return MappingEntry{}, false, ErrMappingFrozen
	}
	if i, ok := b.index[q]; ok {
		return b.entries[i], false, nil
	}
	if role != RoleNearestNeighbor && role != RoleNextNeighbor {
		return MappingEntry{}, false, fmt.Errorf("cannot assign qubit %d to role %s after construction", q, role)
	}
	return b.add(q, role), true, nil
}

// Freeze finishes the build. The builder rejects further assignments.
func (b *MappingBuilder) Freeze() QubitMapping {
	b.frozen = true
	m := QubitMapping{
		entries: make([]MappingEntry, len(b.entries)),
		index:   make(map[int]int, len(b.index)),
		sizes:   b.sizes,
	}
	copy(m.entries, b.entries)
	for k, v := range b.index {
		m.index[k] = v
	}
	return m
}
