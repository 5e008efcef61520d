// Package locator finds the occurrences of a target operation in a context program.
package locator

import (
	"slices"

	"github.com/aretw0/qcal/internal/timeline"
	"github.com/aretw0/qcal/pkg/domain"
)

// Locate returns the occurrences of pattern in time order, ties broken by program index.
// Start times come from the program when it is scheduled, from an ASAP schedule otherwise.
// A program without any match yields a *domain.TargetNotFoundError.
func Locate(p domain.Program, pattern domain.Pattern, durations domain.Durations) ([]domain.Occurrence, error) {
	starts := timeline.Schedule(p, durations)

	var out []domain.Occurrence
	for _, i := range timeline.Order(starts) {
		in := p.Instructions[i]
		if !pattern.Matches(in) {
			continue
		}
		out = append(out, domain.Occurrence{
			Ordinal:   len(out),
			Index:     i,
			StartTime: starts[i],
			Qubits:    slices.Clone(in.Qubits),
		})
	}
	if len(out) == 0 {
		return nil, &domain.TargetNotFoundError{Program: p.Name, Pattern: pattern}
	}
	return out, nil
}
