package domain

import "slices"

// ProgramBuilder provides a fluent API for assembling a Program.
// Parametrization callbacks receive one to insert their replacement operations.
type ProgramBuilder struct {
	program Program
}

// NewProgramBuilder starts a program with numQubits qubits.
func NewProgramBuilder(name string, numQubits int) *ProgramBuilder {
	return &ProgramBuilder{
		program: Program{Name: name, NumQubits: numQubits},
	}
}

// Scheduled marks the program's start times as authoritative.
func (b *ProgramBuilder) Scheduled() *ProgramBuilder {
	b.program.Scheduled = true
	return b
}

// AddQubits grows the qubit universe by n and returns the index of the first new qubit.
func (b *ProgramBuilder) AddQubits(n int) int {
	first := b.program.NumQubits
	b.program.NumQubits += n
	return first
}

// NumQubits returns the current size of the qubit universe.
func (b *ProgramBuilder) NumQubits() int {
	return b.program.NumQubits
}

// Len returns the number of instructions appended so far.
func (b *ProgramBuilder) Len() int {
	return len(b.program.Instructions)
}

// Append adds a copy of the instruction.
func (b *ProgramBuilder) Append(in Instruction) *ProgramBuilder {
	b.program.Instructions = append(b.program.Instructions, in.Clone())
	return b
}

// Gate appends a generic operation.
func (b *ProgramBuilder) Gate(name string, params []Param, qubits ...int) *ProgramBuilder {
	return b.Append(Instruction{Kind: KindGeneric, Name: name, Params: params, Qubits: qubits})
}

// Play appends a pulse play on the given qubit channels.
func (b *ProgramBuilder) Play(pulse string, params []Param, qubits ...int) *ProgramBuilder {
	return b.Append(Instruction{Kind: KindPlay, Name: pulse, Params: params, Qubits: qubits})
}

// ShiftPhase appends a frame rotation.
func (b *ProgramBuilder) ShiftPhase(phase Param, qubit int) *ProgramBuilder {
	return b.Append(Instruction{Kind: KindShiftPhase, Params: []Param{phase}, Qubits: []int{qubit}})
}

// ShiftFrequency appends a frame frequency shift.
func (b *ProgramBuilder) ShiftFrequency(freq Param, qubit int) *ProgramBuilder {
	return b.Append(Instruction{Kind: KindShiftFrequency, Params: []Param{freq}, Qubits: []int{qubit}})
}

// Delay appends an idle period.
func (b *ProgramBuilder) Delay(duration int, qubit int) *ProgramBuilder {
	return b.Append(Instruction{Kind: KindDelay, Duration: duration, Qubits: []int{qubit}})
}

// At sets the start time of the last appended instruction.
func (b *ProgramBuilder) At(start int) *ProgramBuilder {
	if n := len(b.program.Instructions); n > 0 {
		b.program.Instructions[n-1].StartTime = start
	}
	return b
}

// For sets the duration of the last appended instruction.
func (b *ProgramBuilder) For(duration int) *ProgramBuilder {
	if n := len(b.program.Instructions); n > 0 {
		b.program.Instructions[n-1].Duration = duration
	}
	return b
}

// Build returns a copy of the assembled program. The builder stays usable.
func (b *ProgramBuilder) Build() Program {
	out := b.program.Clone()
	out.Instructions = slices.Clip(out.Instructions)
	return out
}
