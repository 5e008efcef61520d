package policy

import (
	"context"
	"testing"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussian_Shape(t *testing.T) {
	g, err := NewGaussian(3, []float64{0, 10}, nil, session.New(session.WithSeed(1)))
	require.NoError(t, err)

	batch, err := g.Act(context.Background(), nil, domain.EpisodeState{})
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for _, row := range batch {
		assert.Len(t, row, 2)
	}
}

func TestGaussian_ZeroStdIsDeterministic(t *testing.T) {
	g, err := NewGaussian(2, []float64{0.5, -1}, []float64{0}, nil)
	require.NoError(t, err)

	batch, err := g.Act(context.Background(), nil, domain.EpisodeState{})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, -1}, {0.5, -1}}, batch)

	require.NoError(t, g.Recenter([]float64{1, 2}))
	batch, err = g.Act(context.Background(), nil, domain.EpisodeState{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, batch[0])
	assert.Error(t, g.Recenter([]float64{1}))
}

func TestGaussian_SameSeedSameDraws(t *testing.T) {
	a, _ := NewGaussian(2, []float64{0}, nil, session.New(session.WithSeed(7)))
	b, _ := NewGaussian(2, []float64{0}, nil, session.New(session.WithSeed(7)))

	x, _ := a.Act(context.Background(), nil, domain.EpisodeState{})
	y, _ := b.Act(context.Background(), nil, domain.EpisodeState{})
	assert.Equal(t, x, y)
}

func TestNewGaussian_Invalid(t *testing.T) {
	_, err := NewGaussian(0, []float64{0}, nil, nil)
	assert.Error(t, err)
	_, err = NewGaussian(1, []float64{0, 1, 2}, []float64{1, 1}, nil)
	assert.Error(t, err)
}
