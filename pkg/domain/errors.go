package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTargetNotFound is returned when the context contains no instance of the target operation.
	ErrTargetNotFound = errors.New("target operation not found in context")

	// ErrBatchSizeMismatch is returned when a step's actions do not match the configured batch shape.
	ErrBatchSizeMismatch = errors.New("batch size mismatch")

	// ErrParametrization is returned when the parametrization callback fails during a rebuild.
	ErrParametrization = errors.New("parametrization failed")

	// ErrInvalidReward is returned when the executor produces a non-finite or malformed score vector.
	ErrInvalidReward = errors.New("invalid reward")

	// ErrUnresolvedParameter is returned when a context parameter cannot be bound.
	ErrUnresolvedParameter = errors.New("unresolved parameter")

	// ErrContextUnbound is returned by Reset or Step before a context has been bound.
	ErrContextUnbound = errors.New("context is unbound")

	// ErrRunNotFound is returned when a run id cannot be found in a history store.
	ErrRunNotFound = errors.New("run not found")
)

// TargetNotFoundError carries the pattern that was searched for.
type TargetNotFoundError struct {
	Program string
	Pattern Pattern
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target %s%v not found in program %q", e.Pattern.Name, e.Pattern.Qubits, e.Program)
}

func (e *TargetNotFoundError) Unwrap() error { return ErrTargetNotFound }

// BatchSizeMismatchError describes the expected and received action shape.
type BatchSizeMismatchError struct {
	Field    string // "batch" or "dim"
	Expected int
	Got      int
}

func (e *BatchSizeMismatchError) Error() string {
	return fmt.Sprintf("batch size mismatch: %s expected %d, got %d", e.Field, e.Expected, e.Got)
}

func (e *BatchSizeMismatchError) Unwrap() error { return ErrBatchSizeMismatch }

// ParametrizationError wraps a failure of the parametrization callback for one occurrence.
type ParametrizationError struct {
	Occurrence int
	Instance   int
	Err        error
}

func (e *ParametrizationError) Error() string {
	return fmt.Sprintf("parametrization failed for truncation %d (instance %d): %v", e.Occurrence, e.Instance, e.Err)
}

func (e *ParametrizationError) Unwrap() []error { return []error{ErrParametrization, e.Err} }

// InvalidRewardError reports a malformed score vector returned by an executor.
type InvalidRewardError struct {
	Truncation int
	Reason     string
}

func (e *InvalidRewardError) Error() string {
	return fmt.Sprintf("invalid reward for truncation %d: %s", e.Truncation, e.Reason)
}

func (e *InvalidRewardError) Unwrap() error { return ErrInvalidReward }

// UnresolvedParameterError lists the parameter names that could not be bound.
type UnresolvedParameterError struct {
	Program string
	Names   []string
	Reason  string
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("program %q: parameters [%s] %s", e.Program, strings.Join(e.Names, ", "), e.Reason)
}

func (e *UnresolvedParameterError) Unwrap() error { return ErrUnresolvedParameter }
