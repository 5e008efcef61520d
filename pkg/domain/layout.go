package domain

import "slices"

// LayoutEntry places one local qubit of a truncation on a physical qubit.
type LayoutEntry struct {
	Local    int       `json:"local"`
	Role     QubitRole `json:"role"`
	Slot     int       `json:"slot"`
	Physical int       `json:"physical"`
}

// Layout maps the local qubits of a truncation onto physical qubits.
// Baseline and custom programs of one truncation share the same Layout.
type Layout struct {
	entries []LayoutEntry
}

// NewLayout builds a layout from a mapping and a context->physical map.
// A nil physical map is the identity (transpiled contexts).
func NewLayout(m QubitMapping, physical []int) Layout {
	l := Layout{entries: make([]LayoutEntry, 0, m.Len())}
	for _, e := range m.Entries() {
		p := e.Context
		if physical != nil && e.Context < len(physical) {
			p = physical[e.Context]
		}
		l.entries = append(l.entries, LayoutEntry{Local: e.Local, Role: e.Role, Slot: e.Slot, Physical: p})
	}
	return l
}

// Len returns the number of local qubits.
func (l Layout) Len() int { return len(l.entries) }

// Physical returns the physical qubit for a local index.
func (l Layout) Physical(local int) (int, bool) {
	if local < 0 || local >= len(l.entries) {
		return 0, false
	}
	return l.entries[local].Physical, true
}

// Entries returns a copy of the entries ordered by local index.
func (l Layout) Entries() []LayoutEntry {
	return slices.Clone(l.entries)
}

// PhysicalQubits returns the physical qubits of a role, in slot order.
func (l Layout) PhysicalQubits(role QubitRole) []int {
	var out []int
	for _, e := range l.entries {
		if e.Role == role {
			out = append(out, e.Physical)
		}
	}
	return out
}

// Equal reports whether two layouts are identical.
func (l Layout) Equal(o Layout) bool {
	return slices.Equal(l.entries, o.entries)
}
