package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/movieme/internal/chart"
	"github.com/roach88/movieme/internal/dashboard"
	"github.com/roach88/movieme/internal/engine"
	"github.com/roach88/movieme/internal/metrics"
	"github.com/roach88/movieme/internal/store"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string

	// OnListen is called with the bound address once the server accepts
	// connections (for testing).
	OnListen func(net.Addr)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard",
		Long: `Start the update loop and serve the dashboard over HTTP.

The page at / shows the list and the three charts and follows every update
over a websocket. Mutations arrive through the REST API and are applied one
at a time. With the file driver, edits to the store file made by other
processes are picked up and redrawn.

Example:
  movieme serve --listen :8080 --db ./movieme.db
  movieme serve --driver file --db ./data --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides listen)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	logger := configureLogging(cmd.ErrOrStderr(), opts.Verbose, cfg.Level())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("opening store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	st, err := openStore(ctx, cfg, logger, m)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	hub := dashboard.NewHub(logger, m)
	surface := dashboard.NewSurface(hub)
	renderer := chart.NewSnapshotRenderer(chart.Targets(), surface.ObserveFrame)
	eng := newEngine(st, surface, renderer, logger, m)

	server := dashboard.NewServer(dashboard.Config{
		Engine:   eng,
		Renderer: renderer,
		Hub:      hub,
		Surface:  surface,
		Gatherer: registry,
		Logger:   logger,
	})
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeServe, "failed to listen", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := eng.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// The first cycle goes through the loop like every other, so requests
	// that race it queue behind it.
	g.Go(func() error {
		c, err := eng.Do(gctx, engine.Event{Op: engine.OpStart})
		if gctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("collection loaded", "movies", len(c.Movies), "cycle", c.Token)
		return nil
	})

	g.Go(func() error {
		logger.Info("dashboard listening", "addr", ln.Addr().String())
		if opts.OnListen != nil {
			opts.OnListen(ln.Addr())
		}
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := st.Watch(gctx, func() {
			if !eng.Enqueue(engine.Event{Op: engine.OpRefresh}) {
				logger.Debug("refresh dropped, engine stopped")
			}
		})
		switch {
		case errors.Is(err, store.ErrWatchUnsupported):
			logger.Debug("store does not support watching", "driver", st.Driver())
			return nil
		case err != nil && !errors.Is(err, context.Canceled):
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		var cycleErr *engine.CycleError
		if errors.As(err, &cycleErr) {
			return formatter.Fail(ExitFailure, ErrCodeCycle, "update failed", err)
		}
		return formatter.Fail(ExitFailure, ErrCodeServe, "dashboard stopped", err)
	}

	logger.Info("dashboard stopped gracefully")
	return nil
}
