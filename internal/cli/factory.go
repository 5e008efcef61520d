// Package cli wires a configuration file into a ready environment for the qcal commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/qcal"
	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/pkg/adapters/memory"
	"github.com/aretw0/qcal/pkg/adapters/process"
	"github.com/aretw0/qcal/pkg/adapters/redis"
	"github.com/aretw0/qcal/pkg/adapters/simulator"
	"github.com/aretw0/qcal/pkg/adapters/sqlite"
	"github.com/aretw0/qcal/pkg/config"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/history"
	"github.com/aretw0/qcal/pkg/observability"
	"github.com/aretw0/qcal/pkg/parametrize"
	"github.com/aretw0/qcal/pkg/ports"
	"github.com/aretw0/qcal/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// BuildOptions tweak how an App is assembled.
type BuildOptions struct {
	// RunID fixes the run id; empty picks a random one.
	RunID string
	// Debug forces debug logging regardless of the config.
	Debug bool
	// LogOutput receives the logs. Nil means stderr.
	LogOutput io.Writer
	// Hooks are merged after the metrics and logging hooks.
	Hooks domain.LifecycleHooks
	// Registry resolves the parametrizer name. Nil means parametrize.Default().
	Registry *parametrize.Registry
}

// App is an environment with everything it was built from.
type App struct {
	Config   config.Config
	Env      *qcal.Environment
	History  *history.Manager
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Session  *session.SimulationSession
	Logger   *slog.Logger

	closers []io.Closer
}

// Close releases the history store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Load reads the config file and builds an App from it.
func Load(ctx context.Context, path string, opts BuildOptions) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, opts)
}

// Build assembles the executor, store, metrics and environment, then installs the context.
func Build(ctx context.Context, cfg config.Config, opts BuildOptions) (*App, error) {
	logger, err := newLogger(cfg.Logging, opts)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	app.Metrics = observability.NewMetrics(app.Registry)

	sessOpts := []session.Option{session.WithRunID(opts.RunID)}
	if cfg.Seed != nil {
		sessOpts = append(sessOpts, session.WithSeed(*cfg.Seed))
	}
	app.Session = session.New(sessOpts...)

	executor, err := newExecutor(cfg.Executor, logger)
	if err != nil {
		return nil, err
	}

	store, locker, closer, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	histOpts := []history.Option{history.WithLogger(logger)}
	if locker != nil {
		histOpts = append(histOpts, history.WithLocker(locker))
	}
	app.History = history.NewManager(store, histOpts...)

	registry := opts.Registry
	if registry == nil {
		registry = parametrize.Default()
	}
	parametrizer, err := registry.Get(cfg.Parametrizer.Name)
	if err != nil {
		app.Close()
		return nil, err
	}

	hooks := domain.ChainHooks(app.Metrics.Hooks(), observability.LogHooks(logger), opts.Hooks)
	env, err := qcal.New(executor, cfg.Target, cfg.Options,
		qcal.WithLogger(logger),
		qcal.WithLifecycleHooks(hooks),
		qcal.WithDevice(cfg.Device),
		qcal.WithParametrizer(parametrizer, cfg.Parametrizer.Args),
		qcal.WithSession(app.Session),
		qcal.WithHistory(app.History),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Env = env

	program := cfg.Program()
	if cfg.Unbound() {
		err = env.SetUnboundContext(ctx, program, cfg.Parameters)
	} else {
		err = env.SetContext(ctx, program)
	}
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to set context: %w", err)
	}
	return app, nil
}

func newLogger(cfg config.LoggingConfig, opts BuildOptions) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = slog.LevelDebug
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	return logging.NewWithWriter(out, logging.Format(cfg.Format), level), nil
}

func newExecutor(cfg config.ExecutorConfig, logger *slog.Logger) (ports.Executor, error) {
	switch cfg.Kind {
	case config.ExecutorSimulator:
		sc, err := simulator.DecodeConfig(cfg.Settings)
		if err != nil {
			return nil, err
		}
		return simulator.New(sc), nil
	case config.ExecutorProcess:
		pc, err := process.DecodeConfig(cfg.Settings)
		if err != nil {
			return nil, err
		}
		return process.New(pc, process.WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("unknown executor kind %q", cfg.Kind)
}

func newStore(ctx context.Context, cfg config.StoreConfig) (ports.HistoryStore, ports.DistributedLocker, io.Closer, error) {
	switch cfg.Kind {
	case config.StoreMemory, "":
		return memory.NewStore(), nil, nil, nil
	case config.StoreRedis:
		ttl, err := cfg.TTLDuration()
		if err != nil {
			return nil, nil, nil, err
		}
		opts := []redis.Option{redis.WithTTL(ttl)}
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		store := redis.New(cfg.Address, os.Getenv("QCAL_REDIS_PASSWORD"), 0, opts...)
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = "qcal:"
		}
		return store, redis.NewLocker(store.Client(), prefix), store, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, store, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}
