package ports

import "github.com/aretw0/qcal/pkg/domain"

// Parametrizer appends the parametrized replacement of one target instance to b.
// params names the symbols the operations must use; register holds the local target qubits.
// args carries user settings from configuration.
type Parametrizer func(b *domain.ProgramBuilder, params domain.ParameterVector, register domain.Register, args map[string]any) error
