package parametrize

import (
	"fmt"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// GateArgs configures the "gate" parametrizer.
type GateArgs struct {
	Name string `mapstructure:"name"`
}

// RotationArgs configures the "rotation" parametrizer.
type RotationArgs struct {
	Gate string `mapstructure:"gate"`
	// Entangler, when set, is appended across the register after the rotations.
	Entangler string `mapstructure:"entangler"`
}

// PulseArgs configures the "pulse" parametrizer.
type PulseArgs struct {
	Pulse string `mapstructure:"pulse"`
	// PhaseIndex selects the parameter used for a frame rotation before the play; -1 disables it.
	PhaseIndex int `mapstructure:"phase_index"`
}

func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid parametrizer args: %w", err)
	}
	return nil
}

// Gate replaces the target with one generic operation over the whole register
// carrying every parameter of the vector.
func Gate(b *domain.ProgramBuilder, params domain.ParameterVector, reg domain.Register, args map[string]any) error {
	cfg := GateArgs{Name: "cal"}
	if err := decode(args, &cfg); err != nil {
		return err
	}
	b.Gate(cfg.Name, params.Params(), reg.Qubits...)
	return nil
}

// Rotation splits the vector evenly over the register qubits and applies one
// single-qubit rotation per qubit.
func Rotation(b *domain.ProgramBuilder, params domain.ParameterVector, reg domain.Register, args map[string]any) error {
	cfg := RotationArgs{Gate: "u"}
	if err := decode(args, &cfg); err != nil {
		return err
	}
	n := reg.Size()
	if n == 0 {
		return fmt.Errorf("rotation: empty register %q", reg.Name)
	}
	if params.Size%n != 0 {
		return fmt.Errorf("rotation: %d parameters cannot be split over %d qubits", params.Size, n)
	}
	per := params.Size / n
	all := params.Params()
	for i, q := range reg.Qubits {
		b.Gate(cfg.Gate, all[i*per:(i+1)*per], q)
	}
	if cfg.Entangler != "" && n > 1 {
		b.Gate(cfg.Entangler, nil, reg.Qubits...)
	}
	return nil
}

// Pulse plays a named pulse on the register with the vector as its parameters.
func Pulse(b *domain.ProgramBuilder, params domain.ParameterVector, reg domain.Register, args map[string]any) error {
	cfg := PulseArgs{Pulse: "drive", PhaseIndex: -1}
	if err := decode(args, &cfg); err != nil {
		return err
	}
	if reg.Size() == 0 {
		return fmt.Errorf("pulse: empty register %q", reg.Name)
	}
	all := params.Params()
	if cfg.PhaseIndex >= 0 {
		if cfg.PhaseIndex >= params.Size {
			return fmt.Errorf("pulse: phase_index %d out of range for %d parameters", cfg.PhaseIndex, params.Size)
		}
		b.ShiftPhase(all[cfg.PhaseIndex], reg.Qubits[0])
		all = append(all[:cfg.PhaseIndex:cfg.PhaseIndex], all[cfg.PhaseIndex+1:]...)
	}
	b.Play(cfg.Pulse, all, reg.Qubits...)
	return nil
}
