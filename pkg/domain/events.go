package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventReset    EventType = "reset"
	EventStep     EventType = "step"
	EventTerminal EventType = "terminal"
	EventRebuild  EventType = "rebuild"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// EpisodeEvent is emitted by the stepper on reset, step and termination.
type EpisodeEvent struct {
	EventBase
	State EpisodeState `json:"state"`
	// Reward holds the shaped batch reward on terminal events.
	Reward     []float64     `json:"reward,omitempty"`
	MeanAction []float64     `json:"mean_action,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Err        error         `json:"-"`
}

// RebuildEvent is emitted after the truncations were (re)derived from a context.
type RebuildEvent struct {
	EventBase
	Program     string        `json:"program"`
	Occurrences int           `json:"occurrences"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// LifecycleHooks defines callbacks for environment observability.
type LifecycleHooks struct {
	OnReset    func(context.Context, *EpisodeEvent)
	OnStep     func(context.Context, *EpisodeEvent)
	OnTerminal func(context.Context, *EpisodeEvent)
	OnRebuild  func(context.Context, *RebuildEvent)
}

// ChainHooks merges several hook sets. Callbacks run in argument order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnReset = chain(out.OnReset, h.OnReset)
		out.OnStep = chain(out.OnStep, h.OnStep)
		out.OnTerminal = chain(out.OnTerminal, h.OnTerminal)
		out.OnRebuild = chain(out.OnRebuild, h.OnRebuild)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
