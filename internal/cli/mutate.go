package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/movieme/internal/movie"
)

// AddOptions holds flags for the add command.
// Numeric fields are kept as text and coerced like a form submission.
type AddOptions struct {
	*RootOptions
	Input movie.Input
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a movie to the front of the list",
		Long: `Add a movie, save the collection and redraw the list and charts.

Scores and gross are parsed as integers. Values that do not parse are
kept as NaN and show up as "$NaN" in the list.

Example:
  movieme add --title Arrival --critic-score 94 --audience-score 82 \
    --domestic 100546139 --genre Sci-Fi`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input.Title, "title", "", "movie title")
	cmd.Flags().StringVar(&opts.Input.CriticScore, "critic-score", "", "critic score")
	cmd.Flags().StringVar(&opts.Input.AudienceScore, "audience-score", "", "audience score")
	cmd.Flags().StringVar(&opts.Input.Domestic, "domestic", "", "domestic gross in dollars")
	cmd.Flags().StringVar(&opts.Input.Genre, "genre", "", "genre")

	return cmd
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	record := opts.Input.Record()
	s.formatter.VerboseLog("adding %q", record.Title)

	c, err := s.engine.Add(commandContext(cmd), record)
	if err != nil {
		return s.cycleFailed(err)
	}
	s.done(c)
	return s.printMovies(c.Movies)
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the collection with the defaults",
		Long: `Replace the collection with the default movies, save it and redraw
the list and charts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(rootOpts, cmd)
		},
	}

	return cmd
}

func runReset(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.engine.Reset(commandContext(cmd))
	if err != nil {
		return s.cycleFailed(err)
	}
	s.done(c)
	return s.printMovies(c.Movies)
}
