package actions_test

import (
	"testing"

	"github.com/aretw0/qcal/internal/actions"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate_Shape(t *testing.T) {
	b, err := actions.Allocate(3, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Levels())

	for level := 0; level < 3; level++ {
		flat, err := b.Flatten(level)
		require.NoError(t, err)
		require.Len(t, flat, 4)
		assert.Len(t, flat[0], (level+1)*2)
	}

	_, err = actions.Allocate(0, 4, 2)
	assert.Error(t, err)
}

func TestFlatten_RowOrderPerElement(t *testing.T) {
	b, err := actions.Allocate(2, 2, 2)
	require.NoError(t, err)

	require.NoError(t, b.Write(1, 0, [][]float64{{1, 2}, {3, 4}}))
	require.NoError(t, b.Write(1, 1, [][]float64{{5, 6}, {7, 8}}))

	flat, err := b.Flatten(1)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 5, 6}, {3, 4, 7, 8}}, flat)
}

func TestFlatten_RoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		k          int
		batch, dim int
	}{
		{"scalar", 1, 1, 1},
		{"single element", 3, 1, 3},
		{"scalar actions", 3, 4, 1},
		{"general", 4, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := actions.Allocate(tt.k, tt.batch, tt.dim)
			require.NoError(t, err)

			// value encodes (level, row, element, component) so misplaced entries are visible.
			value := func(level, row, e, c int) float64 {
				return float64(level*1000 + row*100 + e*10 + c + 1)
			}
			for level := 0; level < tt.k; level++ {
				for row := 0; row <= level; row++ {
					a := make([][]float64, tt.batch)
					for e := range a {
						a[e] = make([]float64, tt.dim)
						for c := range a[e] {
							a[e][c] = value(level, row, e, c)
						}
					}
					require.NoError(t, b.Write(level, row, a))
				}
			}

			for level := 0; level < tt.k; level++ {
				flat, err := b.Flatten(level)
				require.NoError(t, err)
				require.Len(t, flat, tt.batch)
				for e, vec := range flat {
					require.Len(t, vec, (level+1)*tt.dim)
					for row := 0; row <= level; row++ {
						got := vec[row*tt.dim : (row+1)*tt.dim]
						stored, err := b.Row(level, row)
						require.NoError(t, err)
						assert.Equal(t, stored[e], got, "level %d row %d element %d", level, row, e)
						for c := range got {
							assert.Equal(t, value(level, row, e, c), got[c])
						}
					}
				}
			}
		})
	}
}

func TestFlatten_PartiallyWritten(t *testing.T) {
	b, err := actions.Allocate(3, 1, 1)
	require.NoError(t, err)
	require.NoError(t, b.Write(2, 0, [][]float64{{0.5}}))

	flat, err := b.Flatten(2)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0, 0}}, flat)
}

func TestWrite_Mismatch(t *testing.T) {
	b, err := actions.Allocate(2, 4, 2)
	require.NoError(t, err)

	err = b.Write(0, 0, [][]float64{{1, 2}, {1, 2}, {1, 2}})
	assert.ErrorIs(t, err, domain.ErrBatchSizeMismatch)

	err = b.Write(0, 0, [][]float64{{1}, {1}, {1}, {1}})
	var mismatch *domain.BatchSizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "dim", mismatch.Field)

	assert.Error(t, b.Write(0, 1, [][]float64{{1, 2}, {1, 2}, {1, 2}, {1, 2}}), "row beyond level")
}

func TestRow_ReturnsCopy(t *testing.T) {
	b, err := actions.Allocate(1, 1, 2)
	require.NoError(t, err)
	require.NoError(t, b.Write(0, 0, [][]float64{{1, 2}}))

	row, err := b.Row(0, 0)
	require.NoError(t, err)
	row[0][0] = 42

	again, err := b.Row(0, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}}, again)
}

func TestMean(t *testing.T) {
	b, err := actions.Allocate(1, 2, 2)
	require.NoError(t, err)
	require.NoError(t, b.Write(0, 0, [][]float64{{1, 2}, {3, 6}}))

	mean, err := b.Mean(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, mean)
}
