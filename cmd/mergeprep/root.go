package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mergeprep/internal/config"
	"mergeprep/internal/db"
	"mergeprep/internal/logging"
	"mergeprep/internal/metrics"
	"mergeprep/internal/metrics/datadog"
	"mergeprep/internal/metrics/prompush"
)

// Deps holds injectable dependencies so every subcommand is testable
// without a database or a metrics endpoint. defaultDeps wires the real ones.
type Deps struct {
	NewLogger func(verbose bool) (*zap.Logger, error)

	// Count probe constructors
	NewPgCounter  func(ctx context.Context, dsn string) (db.Counter, error)
	NewSQLCounter func(ctx context.Context, driver, dsn string, chunkSize int) (db.Counter, error)
}

func defaultDeps() Deps {
	return Deps{
		NewLogger:     logging.New,
		NewPgCounter:  db.NewPgCounter,
		NewSQLCounter: db.NewSQLCounter,
	}
}

// app is the state shared by the root command and its subcommands.
type app struct {
	cfg    *config.Config
	getenv func(string) string
	deps   Deps
	logger *zap.Logger
}

func newRootCmd(deps Deps, getenv func(string) string) *cobra.Command {
	a := &app{deps: deps, getenv: getenv, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "mergeprep",
		Short: "Prepare encounter merges for duplicate individuals",
		Long: `mergeprep turns a reviewed keep/merge file into merge pairs and the pairs
into a transactional SQL script that moves encounters from duplicate
individuals onto the individual being kept. The script rolls back unless
an operator edits it to commit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := a.deps.NewLogger(a.cfg.Verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			a.setupMetrics()
			return nil
		},
	}
	a.cfg = config.Bind(root.PersistentFlags(), getenv)

	root.AddCommand(
		a.segmentsCmd(),
		a.queryCmd(),
		a.countsCmd(),
	)
	return root
}

// setupMetrics installs the configured backend; failures fall back to nop.
func (a *app) setupMetrics() {
	cfg := a.cfg
	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err := prompush.NewBackend(cfg.JobName, cfg.PushgatewayURL)
		if err != nil {
			a.logger.Warn("metrics: failed to init prom push backend; using nop", zap.Error(err))
			return
		}
		a.logger.Debug("metrics: pushgateway", zap.String("url", cfg.PushgatewayURL), zap.String("job", cfg.JobName))
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.DogStatsDAddr,
			GlobalTags: []string{"job:" + cfg.JobName},
		})
		if err != nil {
			a.logger.Warn("metrics: failed to init dogstatsd backend; using nop", zap.Error(err))
			return
		}
		a.logger.Debug("metrics: dogstatsd", zap.String("addr", cfg.DogStatsDAddr))
		metrics.SetBackend(b)

	case "", "none":
		a.logger.Debug("metrics: disabled")

	default:
		a.logger.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", cfg.MetricsBackend))
	}
}

// step wraps a subcommand body: it times the run, records the outcome,
// then flushes metrics and the logger whatever happened.
func (a *app) step(name string, fn func(cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		start := time.Now()
		err := fn(cmd)
		metrics.RecordStep(a.cfg.JobName, name, err, time.Since(start))

		if ferr := metrics.Flush(); ferr != nil {
			a.logger.Warn("metrics: flush error", zap.Error(ferr))
		}
		if err != nil {
			a.logger.Error(name+" failed", zap.Error(err))
		} else {
			a.logger.Debug(name+" completed", zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
		}
		_ = a.logger.Sync()
		if err != nil {
			return loggedError{err}
		}
		return nil
	}
}

// loggedError marks a failure the step wrapper already wrote to the log.
type loggedError struct{ err error }

func (e loggedError) Error() string { return e.err.Error() }
func (e loggedError) Unwrap() error { return e.err }

// reportError prints err to w unless it was already logged. Flag parsing
// and logger setup fail before any step runs, so those still reach w.
func reportError(w io.Writer, err error) {
	var logged loggedError
	if errors.As(err, &logged) {
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

// validate logs warnings and returns every error issue joined.
func (a *app) validate(stage config.Stage) error {
	issues := config.Validate(a.cfg, stage)
	var errs []error
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			errs = append(errs, iss)
			continue
		}
		a.logger.Warn(iss.Message, zap.String("flag", iss.Path))
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("invalid configuration for %s: %w", stage, errors.Join(errs...))
	}
	return nil
}

// counterFactory picks the probe adapter for the configured driver.
func (a *app) counterFactory() (db.CounterFactory, error) {
	cfg := a.cfg
	switch cfg.DBDriver {
	case "postgres":
		dsn := cfg.PostgresDSN()
		return func(ctx context.Context) (db.Counter, error) { return a.deps.NewPgCounter(ctx, dsn) }, nil

	case "mssql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("--dsn required for mssql")
		}
		return func(ctx context.Context) (db.Counter, error) {
			return a.deps.NewSQLCounter(ctx, "sqlserver", cfg.DSN, cfg.ChunkSize)
		}, nil

	case "sqlite":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("--dsn required for sqlite")
		}
		return func(ctx context.Context) (db.Counter, error) {
			return a.deps.NewSQLCounter(ctx, "sqlite", cfg.DSN, cfg.ChunkSize)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported --db_driver=%q", cfg.DBDriver)
	}
}

// openCounter opens a counter and returns it with a close func that logs
// rather than fails.
func (a *app) openCounter(ctx context.Context) (db.Counter, func(), error) {
	factory, err := a.counterFactory()
	if err != nil {
		return nil, nil, err
	}
	c, err := factory(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", a.cfg.DBDriver, err)
	}
	return c, func() {
		if err := c.Close(ctx); err != nil {
			a.logger.Warn("close counter", zap.Error(err))
		}
	}, nil
}
