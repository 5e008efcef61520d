// Package truncation derives, for every occurrence of a target operation, the minimal
// sub-program holding the operations that causally precede it on the target qubits and
// their neighbors.
package truncation

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/qcal/internal/locator"
	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/internal/timeline"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/ports"
)

// Result is the outcome of a rebuild. Truncations[i] and Targets[i] belong to Occurrences[i].
type Result struct {
	Occurrences []domain.Occurrence
	Truncations []domain.Truncation
	Targets     []domain.Target
}

// Len returns the number of occurrences.
func (r Result) Len() int {
	return len(r.Occurrences)
}

// Truncator builds truncations from a bound context program.
type Truncator struct {
	parametrizer ports.Parametrizer
	args         map[string]any
	paramSize    int
	nReps        int
	logger       *slog.Logger
}

// Option configures the Truncator.
type Option func(*Truncator)

// WithLogger sets the logger used for classification warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Truncator) {
		t.logger = logger
	}
}

// WithArgs passes extra settings to every parametrizer call.
func WithArgs(args map[string]any) Option {
	return func(t *Truncator) {
		t.args = args
	}
}

// WithParamSize sets the length of each parameter vector (the action dimension).
func WithParamSize(n int) Option {
	return func(t *Truncator) {
		t.paramSize = n
	}
}

// WithNReps sets the repetition count recorded on each Target.
func WithNReps(n int) Option {
	return func(t *Truncator) {
		t.nReps = n
	}
}

// New creates a Truncator using p to build the parametrized target replacements.
func New(p ports.Parametrizer, opts ...Option) *Truncator {
	t := &Truncator{
		parametrizer: p,
		paramSize:    1,
		nReps:        1,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Build locates the occurrences of pattern in program and derives one truncation per occurrence.
// The program must be fully bound. The source program is never modified.
func (t *Truncator) Build(program domain.Program, pattern domain.Pattern, device domain.Device) (Result, error) {
	if err := program.RequireBound(); err != nil {
		return Result{}, err
	}
	if err := device.Validate(program.NumQubits); err != nil {
		return Result{}, err
	}

	durations := device.Durations
	if durations.Default == 0 && len(durations.ByName) == 0 {
		durations = domain.DefaultDurations()
	}

	occurrences, err := locator.Locate(program, pattern, durations)
	if err != nil {
		return Result{}, err
	}

	starts := timeline.Schedule(program, durations)
	order := timeline.Order(starts)

	instance := make(map[int]int, len(occurrences))
	for _, occ := range occurrences {
		instance[occ.Index] = occ.Ordinal
	}

	physTargets := make([]int, len(pattern.Qubits))
	for i, q := range pattern.Qubits {
		physTargets[i] = device.Physical(q)
	}
	physNN := device.Coupling.Neighbors(physTargets)
	physNext := device.Coupling.Neighbors(append(slices.Clone(physTargets), physNN...))

	res := Result{
		Occurrences: occurrences,
		Truncations: make([]domain.Truncation, len(occurrences)),
		Targets:     make([]domain.Target, len(occurrences)),
	}
	for i, occ := range occurrences {
		tr, err := t.truncate(program, occ, pattern.Qubits, instance, starts, order, device)
		if err != nil {
			return Result{}, err
		}
		t.checkNeighbors(tr, device, physNN, physNext)

		res.Truncations[i] = tr
		res.Targets[i] = domain.Target{
			Gate:           pattern.Name,
			PhysicalQubits: slices.Clone(physTargets),
			NeighborQubits: slices.Clone(physNN),
			NextNeighbors:  slices.Clone(physNext),
			NReps:          t.nReps,
			Baseline:       tr.Baseline.Clone(),
			Register:       tr.Mapping.Register(domain.RoleTarget),
			Layout:         tr.Layout,
		}
	}
	return res, nil
}

func (t *Truncator) truncate(
	program domain.Program,
	occ domain.Occurrence,
	targets []int,
	instance map[int]int,
	starts, order []int,
	device domain.Device,
) (domain.Truncation, error) {
	i := occ.Ordinal
	mb, err := domain.NewMappingBuilder(targets)
	if err != nil {
		return domain.Truncation{}, err
	}

	baseline := domain.NewProgramBuilder(fmt.Sprintf("b_circ%d", i), len(targets)).Scheduled()
	custom := domain.NewProgramBuilder(fmt.Sprintf("c_circ%d", i), len(targets))
	tgtRegister := domain.Register{Name: domain.RoleTarget.RegisterName(), Qubits: make([]int, len(targets))}
	for k := range targets {
		tgtRegister.Qubits[k] = k
	}

	params := make([]domain.ParameterVector, 0, i+1)
	passed := 0
	for _, idx := range order {
		in := program.Instructions[idx]
		if passed > i && starts[idx] > occ.StartTime {
			continue
		}
		if !t.relevant(mb, in) {
			continue
		}

		touchesTarget := false
		for _, q := range in.Qubits {
			if role, ok := mb.Role(q); ok && role == domain.RoleTarget {
				touchesTarget = true
				break
			}
		}
		role := domain.RoleNextNeighbor
		if touchesTarget {
			role = domain.RoleNearestNeighbor
		}
		for _, q := range in.Qubits {
			if _, fresh, err := mb.Assign(q, role); err != nil {
				return domain.Truncation{}, err
			} else if fresh {
				baseline.AddQubits(1)
				custom.AddQubits(1)
			}
		}

		placed := in.Remap(func(q int) int {
			local, _ := mb.Local(q)
			return local
		})
		placed.StartTime = starts[idx]

		baseline.Append(placed)
		j, isTarget := instance[idx]
		if !isTarget || j > i {
			custom.Append(placed)
			continue
		}

		vec := domain.NewParameterVector(j, t.paramSize)
		if err := t.parametrize(custom, vec, tgtRegister, i, j); err != nil {
			return domain.Truncation{}, err
		}
		params = append(params, vec)
		passed++
	}

	mapping := mb.Freeze()
	return domain.Truncation{
		Index:      i,
		Occurrence: occ,
		Baseline:   baseline.Build(),
		Custom:     custom.Build(),
		Mapping:    mapping,
		Layout:     domain.NewLayout(mapping, device.PhysicalMap),
		Parameters: params,
	}, nil
}

// relevant reports whether in touches a target qubit or a nearest neighbor already classified.
func (t *Truncator) relevant(mb *domain.MappingBuilder, in domain.Instruction) bool {
	for _, q := range in.Qubits {
		if role, ok := mb.Role(q); ok && role != domain.RoleNextNeighbor {
			return true
		}
	}
	return false
}

// parametrize runs the user callback, converting errors and panics into a ParametrizationError.
func (t *Truncator) parametrize(b *domain.ProgramBuilder, vec domain.ParameterVector, reg domain.Register, occurrence, inst int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ParametrizationError{Occurrence: occurrence, Instance: inst, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if t.parametrizer == nil {
		return &domain.ParametrizationError{Occurrence: occurrence, Instance: inst, Err: fmt.Errorf("no parametrizer configured")}
	}
	if cbErr := t.parametrizer(b, vec, reg, t.args); cbErr != nil {
		return &domain.ParametrizationError{Occurrence: occurrence, Instance: inst, Err: cbErr}
	}
	return nil
}

// checkNeighbors warns when the classification of a context qubit disagrees with the coupling map.
func (t *Truncator) checkNeighbors(tr domain.Truncation, device domain.Device, physNN, physNext []int) {
	if len(device.Coupling.Edges) == 0 {
		return
	}
	for _, e := range tr.Layout.Entries() {
		var expected []int
		switch e.Role {
		case domain.RoleNearestNeighbor:
			expected = physNN
		case domain.RoleNextNeighbor:
			expected = physNext
		default:
			continue
		}
		if !slices.Contains(expected, e.Physical) {
			t.logger.Warn("Qubit classification disagrees with coupling map",
				"truncation", tr.Index,
				"role", e.Role.String(),
				"physical", e.Physical,
			)
		}
	}
}
