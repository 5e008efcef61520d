// Package timeline computes instruction start times.
package timeline

import (
	"slices"

	"github.com/aretw0/qcal/pkg/domain"
)

// Schedule returns the start time of every instruction.
// Annotated programs keep their start times. Otherwise instructions are placed as soon
// as possible: each starts at the latest free time of its qubits, which then become free
// at start + duration.
func Schedule(p domain.Program, durations domain.Durations) []int {
	starts := make([]int, len(p.Instructions))
	if p.Scheduled {
		for i, in := range p.Instructions {
			starts[i] = in.StartTime
		}
		return starts
	}

	free := make(map[int]int)
	for i, in := range p.Instructions {
		t := 0
		for _, q := range in.Qubits {
			t = max(t, free[q])
		}
		starts[i] = t
		end := t + durations.Of(in)
		for _, q := range in.Qubits {
			free[q] = end
		}
	}
	return starts
}

// Annotate returns a scheduled copy of p with start times and durations filled in.
func Annotate(p domain.Program, durations domain.Durations) domain.Program {
	starts := Schedule(p, durations)
	out := p.Clone()
	for i := range out.Instructions {
		out.Instructions[i].StartTime = starts[i]
		if out.Instructions[i].Duration == 0 {
			out.Instructions[i].Duration = durations.Of(out.Instructions[i])
		}
	}
	out.Scheduled = true
	return out
}

// Order returns instruction indices sorted by start time, ties broken by index.
func Order(starts []int) []int {
	idx := make([]int, len(starts))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return starts[a] - starts[b]
	})
	return idx
}

// Makespan returns the time at which the last instruction finishes.
func Makespan(p domain.Program, durations domain.Durations) int {
	starts := Schedule(p, durations)
	end := 0
	for i, in := range p.Instructions {
		end = max(end, starts[i]+durations.Of(in))
	}
	return end
}
