package cli

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/movieme/internal/chart"
	"github.com/roach88/movieme/internal/config"
	"github.com/roach88/movieme/internal/engine"
	"github.com/roach88/movieme/internal/metrics"
	"github.com/roach88/movieme/internal/movie"
	"github.com/roach88/movieme/internal/store"
)

// loadConfig reads --config and applies the --db and --driver overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Database == "" && opts.Driver == "" {
		return cfg, nil
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}
	if opts.Driver != "" {
		cfg.Store.Driver = opts.Driver
	}
	return cfg, config.Validate(cfg)
}

// configureLogging installs a text handler on w as the default logger.
// Verbose forces debug level.
func configureLogging(w io.Writer, verbose bool, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// openStore opens the backend the config selects.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*store.Store, error) {
	storeOpts := cfg.StoreOptions()
	storeOpts.Logger = logger
	storeOpts.Metrics = m
	return store.Open(ctx, storeOpts)
}

// newEngine wires the chart controller over renderer and builds the engine.
func newEngine(st engine.RecordStore, list engine.ListRenderer, renderer chart.Renderer, logger *slog.Logger, m *metrics.Metrics) *engine.Engine {
	charts := chart.NewController(renderer,
		chart.WithLogger(logger),
		chart.WithMetrics(m),
	)
	return engine.New(st, list, charts,
		engine.WithLogger(logger),
		engine.WithMetrics(m),
	)
}

// commandContext returns the command's context, or Background when run
// without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// session is the wiring of a one-shot command: one store, one engine and an
// in-memory chart renderer, started before the command's own operation.
type session struct {
	formatter *OutputFormatter
	logger    *slog.Logger
	store     *store.Store
	list      *lineRecorder
	renderer  *chart.SnapshotRenderer
	engine    *engine.Engine
	started   engine.Cycle
}

// openSession loads config, opens the store and runs the start cycle.
// Errors are already reported through the formatter.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	logger := configureLogging(cmd.ErrOrStderr(), opts.Verbose, cfg.Level())
	m := metrics.New(nil)

	ctx := commandContext(cmd)
	st, err := openStore(ctx, cfg, logger, m)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}

	s := &session{
		formatter: formatter,
		logger:    logger,
		store:     st,
		list:      &lineRecorder{},
		renderer:  chart.NewSnapshotRenderer(chart.Targets(), nil),
	}
	s.engine = newEngine(st, s.list, s.renderer, logger, m)

	s.started, err = s.engine.Start(ctx)
	if err != nil {
		s.Close()
		return nil, s.cycleFailed(err)
	}
	formatter.Cycle = s.started.Token
	return s, nil
}

// cycleFailed reports a failed cycle.
func (s *session) cycleFailed(err error) error {
	return s.formatter.Fail(ExitFailure, ErrCodeCycle, "update failed", err)
}

// done records c as the cycle behind the output.
func (s *session) done(c engine.Cycle) {
	s.formatter.Cycle = c.Token
}

// printMovies prints the list lines as text or the records as JSON.
func (s *session) printMovies(records []movie.Record) error {
	if s.formatter.Format == "json" {
		if records == nil {
			records = []movie.Record{}
		}
		return s.formatter.Success(records)
	}
	return s.formatter.Success(s.list.Lines())
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
}

// lineRecorder keeps the most recent list rendering.
type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) RenderList(_ context.Context, records []movie.Record) error {
	lines := movie.FormatList(records)
	l.mu.Lock()
	l.lines = lines
	l.mu.Unlock()
	return nil
}

func (l *lineRecorder) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
