package session

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// SimulationSession is the per-run state shared between the environment and its executor.
type SimulationSession struct {
	runID string

	mu   sync.Mutex
	seed int64
	rng  *rand.Rand
}

// Option configures a SimulationSession.
type Option func(*SimulationSession)

// WithRunID sets a fixed run id instead of a random one.
func WithRunID(id string) Option {
	return func(s *SimulationSession) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithSeed sets the initial seed.
func WithSeed(seed int64) Option {
	return func(s *SimulationSession) {
		s.seed = seed
	}
}

// New creates a session with a fresh run id and seed 0.
func New(opts ...Option) *SimulationSession {
	s := &SimulationSession{runID: uuid.NewString()}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewSource(s.seed))
	return s
}

// RunID returns the identifier used to key persisted history.
func (s *SimulationSession) RunID() string {
	return s.runID
}

// Seed returns the seed last applied.
func (s *SimulationSession) Seed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed
}

// Reseed resets the random source.
func (s *SimulationSession) Reseed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.rng = rand.New(rand.NewSource(seed))
}

// Float64 draws from the session's random source.
func (s *SimulationSession) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// NormFloat64 draws a standard normal sample from the session's random source.
func (s *SimulationSession) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.NormFloat64()
}
