package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logdog-io/logdog/internal/engine"
	"github.com/logdog-io/logdog/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Kind     string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled watchdog events",
		Long: `Show events recorded by a previous or concurrent watchdog run.

Reads the SQLite journal written by "logdog run --db". The journal uses WAL
mode, so reading while a watchdog is writing is safe.

Example:
  logdog history --db ./events.db --limit 20
  logdog history --db ./events.db --kind Timeout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the event journal (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum number of events to show, 0 for all")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show events of this kind")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Kind != "" {
		if _, err := engine.ParseKind(opts.Kind); err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
	}
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	records, err := j.Recent(cmd.Context(), opts.Limit, opts.Kind)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}

	if opts.Format == "json" {
		return formatter.Success(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No events recorded.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  #%-5d %-16s rule=%-20s node=%-24s %dms  %s\n",
			rec.RecordedAt.Format("2006-01-02 15:04:05"),
			rec.Seq,
			rec.Kind,
			rec.Rule,
			rec.Node,
			rec.ElapsedMS,
			rec.Description,
		)
	}
	return nil
}
