package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qcal"

// Metrics holds the Prometheus collectors fed by the lifecycle hooks.
type Metrics struct {
	Events        *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec
	TerminalMean  prometheus.Histogram
	Rebuilds      *prometheus.CounterVec
	RebuildTiming prometheus.Histogram
	Occurrences   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "episode_events_total",
				Help:      "Total number of episode lifecycle events",
			},
			[]string{"event"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of environment steps, executor call included",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"result"},
		),
		TerminalMean: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "terminal_reward",
				Help:      "Batch mean of the shaped reward at episode termination",
				Buckets:   prometheus.LinearBuckets(0, 1.5, 10),
			},
		),
		Rebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rebuilds_total",
				Help:      "Total number of truncation rebuilds",
			},
			[]string{"result"},
		),
		RebuildTiming: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rebuild_duration_seconds",
				Help:      "Duration of truncation rebuilds",
			},
		),
		Occurrences: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "target_occurrences",
				Help:      "Number of target occurrences in the current context",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Events, m.StepDuration, m.TerminalMean, m.Rebuilds, m.RebuildTiming, m.Occurrences)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnReset: func(_ context.Context, e *domain.EpisodeEvent) {
			m.Events.WithLabelValues(string(domain.EventReset)).Inc()
		},
		OnStep: func(_ context.Context, e *domain.EpisodeEvent) {
			m.Events.WithLabelValues(string(domain.EventStep)).Inc()
			m.StepDuration.WithLabelValues(result(e.Err)).Observe(e.Duration.Seconds())
		},
		OnTerminal: func(_ context.Context, e *domain.EpisodeEvent) {
			m.Events.WithLabelValues(string(domain.EventTerminal)).Inc()
			if len(e.Reward) > 0 {
				m.TerminalMean.Observe(mean(e.Reward))
			}
		},
		OnRebuild: func(_ context.Context, e *domain.RebuildEvent) {
			m.Rebuilds.WithLabelValues(result(e.Err)).Inc()
			m.RebuildTiming.Observe(e.Duration.Seconds())
			if e.Err == nil {
				m.Occurrences.Set(float64(e.Occurrences))
			}
		},
	}
}

// LogHooks returns lifecycle hooks writing one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnReset: func(ctx context.Context, e *domain.EpisodeEvent) {
			logger.DebugContext(ctx, "episode_reset",
				"run_id", e.RunID,
				"episode", e.State.Episode,
				"truncation", e.State.TruncationIndex,
			)
		},
		OnStep: func(ctx context.Context, e *domain.EpisodeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "episode_step", "run_id", e.RunID, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "episode_step",
				"run_id", e.RunID,
				"intra_step", e.State.IntraStep,
				"global_step", e.State.GlobalStep,
				"duration", e.Duration,
			)
		},
		OnTerminal: func(ctx context.Context, e *domain.EpisodeEvent) {
			logger.InfoContext(ctx, "episode_terminal",
				"run_id", e.RunID,
				"episode", e.State.Episode,
				"truncation", e.State.TruncationIndex,
				"mean_reward", mean(e.Reward),
			)
		},
		OnRebuild: func(ctx context.Context, e *domain.RebuildEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "rebuild_failed", "program", e.Program, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "rebuild",
				"program", e.Program,
				"occurrences", e.Occurrences,
				"duration", e.Duration,
			)
		},
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
