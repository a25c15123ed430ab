package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/movieme/internal/chart"
)

// ChartsOptions holds flags for the charts command.
type ChartsOptions struct {
	*RootOptions
	Kind string
}

// NewChartsCommand creates the charts command.
func NewChartsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChartsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Print the Chart.js configurations",
		Long: `Print the chart configurations derived from the current collection.

Text output is one indented Chart.js config per chart; JSON output is the
list of frames.

Example:
  movieme charts --kind doughnut`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCharts(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only this chart (bar|doughnut|scatter)")

	return cmd
}

func runCharts(opts *ChartsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var kind chart.Kind
	if opts.Kind != "" {
		k, err := chart.ParseKind(opts.Kind)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeKind, "invalid --kind", err)
		}
		kind = k
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	frames := s.renderer.Snapshot()
	if kind != "" {
		f, ok := s.renderer.Frame(kind.Target())
		if !ok {
			return s.cycleFailed(chart.ErrTargetNotFound)
		}
		frames = []chart.Frame{f}
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(frames)
	}
	for _, f := range frames {
		data, err := json.MarshalIndent(f.Config, "", "  ")
		if err != nil {
			return s.formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to encode chart", err)
		}
		if err := s.formatter.Text("# " + f.Target); err != nil {
			return err
		}
		if err := s.formatter.Text(string(data)); err != nil {
			return err
		}
	}
	return nil
}
