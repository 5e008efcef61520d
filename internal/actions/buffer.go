// Package actions stores the actions of an episode, one row per target instance.
package actions

import (
	"fmt"
	"slices"

	"github.com/aretw0/qcal/pkg/domain"
)

// Buffer is a ragged store: level i holds i+1 rows of shape (batch, dim).
// Rows that were not written yet are zero.
type Buffer struct {
	batch  int
	dim    int
	levels [][][]float64 // [level][row][batch*dim]
}

// Allocate creates a zeroed buffer with k levels.
func Allocate(k, batch, dim int) (*Buffer, error) {
	if k < 1 || batch < 1 || dim < 1 {
		return nil, fmt.Errorf("invalid action buffer shape k=%d batch=%d dim=%d", k, batch, dim)
	}
	b := &Buffer{batch: batch, dim: dim, levels: make([][][]float64, k)}
	for i := range b.levels {
		rows := make([][]float64, i+1)
		for r := range rows {
			rows[r] = make([]float64, batch*dim)
		}
		b.levels[i] = rows
	}
	return b, nil
}

// Levels returns k.
func (b *Buffer) Levels() int { return len(b.levels) }

// BatchSize returns the batch dimension.
func (b *Buffer) BatchSize() int { return b.batch }

// Dim returns the action dimension.
func (b *Buffer) Dim() int { return b.dim }

// CheckShape validates an action batch without writing it.
func (b *Buffer) CheckShape(actions [][]float64) error {
	if len(actions) != b.batch {
		return &domain.BatchSizeMismatchError{Field: "batch", Expected: b.batch, Got: len(actions)}
	}
	for _, a := range actions {
		if len(a) != b.dim {
			return &domain.BatchSizeMismatchError{Field: "dim", Expected: b.dim, Got: len(a)}
		}
	}
	return nil
}

// Write stores actions at (level, row), overwriting in place.
func (b *Buffer) Write(level, row int, actions [][]float64) error {
	if err := b.checkIndex(level, row); err != nil {
		return err
	}
	if err := b.CheckShape(actions); err != nil {
		return err
	}
	dst := b.levels[level][row]
	for e, a := range actions {
		copy(dst[e*b.dim:(e+1)*b.dim], a)
	}
	return nil
}

// Row returns a copy of (level, row) as a (batch, dim) matrix.
func (b *Buffer) Row(level, row int) ([][]float64, error) {
	if err := b.checkIndex(level, row); err != nil {
		return nil, err
	}
	src := b.levels[level][row]
	out := make([][]float64, b.batch)
	for e := range out {
		out[e] = slices.Clone(src[e*b.dim : (e+1)*b.dim])
	}
	return out, nil
}

// Flatten returns a (batch, (level+1)*dim) matrix. Batch element e holds rows 0..level
// of that element concatenated in row order.
func (b *Buffer) Flatten(level int) ([][]float64, error) {
	if level < 0 || level >= len(b.levels) {
		return nil, fmt.Errorf("level %d out of range [0, %d)", level, len(b.levels))
	}
	rows := b.levels[level]
	out := make([][]float64, b.batch)
	for e := range out {
		vec := make([]float64, 0, len(rows)*b.dim)
		for _, r := range rows {
			vec = append(vec, r[e*b.dim:(e+1)*b.dim]...)
		}
		out[e] = vec
	}
	return out, nil
}

// Mean returns the batch mean of a flattened level.
func (b *Buffer) Mean(level int) ([]float64, error) {
	flat, err := b.Flatten(level)
	if err != nil {
		return nil, err
	}
	mean := make([]float64, len(flat[0]))
	for _, v := range flat {
		for i, x := range v {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= float64(len(flat))
	}
	return mean, nil
}

func (b *Buffer) checkIndex(level, row int) error {
	if level < 0 || level >= len(b.levels) {
		return fmt.Errorf("level %d out of range [0, %d)", level, len(b.levels))
	}
	if row < 0 || row > level {
		return fmt.Errorf("row %d out of range for level %d", row, level)
	}
	return nil
}
