package session_test

import (
	"testing"

	"github.com/aretw0/qcal/pkg/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_GeneratesRunID(t *testing.T) {
	a := session.New()
	b := session.New()

	_, err := uuid.Parse(a.RunID())
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestWithRunID(t *testing.T) {
	s := session.New(session.WithRunID("calib-1"))
	assert.Equal(t, "calib-1", s.RunID())
}

func TestReseed_IsReproducible(t *testing.T) {
	s := session.New(session.WithSeed(7))
	first := []float64{s.Float64(), s.NormFloat64()}

	s.Reseed(7)
	second := []float64{s.Float64(), s.NormFloat64()}

	assert.Equal(t, first, second)
	assert.Equal(t, int64(7), s.Seed())
}
