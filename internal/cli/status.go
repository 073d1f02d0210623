package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logdog-io/logdog/internal/config"
	"github.com/logdog-io/logdog/internal/notify"
)

// StatusResult summarizes a configuration for machine consumption.
type StatusResult struct {
	LogPath      string   `json:"log_path"`
	PollInterval string   `json:"poll_interval"`
	FileNotify   bool     `json:"file_notify"`
	Rules        []string `json:"rules"`
	Entries      []string `json:"entries,omitempty"`
	Completed    []string `json:"completed,omitempty"`
	Notifiers    []string `json:"notifiers,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <config-file>",
		Short: "Show what a configuration watches",
		Long: `Show the watched file, the expected transition paths with their
timeouts, and which notification platforms are configured.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(path)
	if err != nil {
		code, message := "CONFIG_INVALID", err.Error()
		var loadErr *config.LoadError
		if errors.As(err, &loadErr) {
			code, message = loadErr.Code, loadErr.Message
		}
		if outErr := formatter.Error(code, message, path); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "cannot load configuration")
	}

	result := statusFromConfig(cfg)
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	printStatus(cmd.OutOrStdout(), result)
	return nil
}

// statusFromConfig flattens a configuration into its display summary.
// Shared by the status command and the run command's startup banner.
func statusFromConfig(cfg *config.Config) StatusResult {
	result := StatusResult{
		LogPath:      cfg.Monitoring.LogPath,
		PollInterval: cfg.Monitoring.Interval().String(),
		FileNotify:   cfg.Monitoring.FileNotify,
		Notifiers:    notify.NewDispatcher(cfg).Names(),
	}
	for _, rule := range cfg.Rules {
		result.Rules = append(result.Rules, fmt.Sprintf("%s: %s", rule.Name, rulePath(rule)))
	}
	for _, entry := range cfg.Entries {
		result.Entries = append(result.Entries, fmt.Sprintf("%s (%s)", entry.Node, entry.Name))
	}
	for _, comp := range cfg.Completed {
		result.Completed = append(result.Completed, comp.Node)
	}
	return result
}

// rulePath renders a rule chain as "A -> B (2000ms) -> C (3000ms)".
func rulePath(rule config.Rule) string {
	var b strings.Builder
	b.WriteString(rule.Start)
	for _, tr := range rule.Transitions {
		fmt.Fprintf(&b, " -> %s (%dms)", tr.To, tr.TimeoutMS)
	}
	return b.String()
}

func printStatus(w io.Writer, result StatusResult) {
	fmt.Fprintf(w, "Watching:      %s\n", result.LogPath)
	fmt.Fprintf(w, "Poll interval: %s\n", result.PollInterval)
	fmt.Fprintf(w, "File notify:   %v\n", result.FileNotify)

	fmt.Fprintln(w, "Rules:")
	for _, rule := range result.Rules {
		fmt.Fprintf(w, "  %s\n", rule)
	}
	if len(result.Entries) > 0 {
		fmt.Fprintln(w, "Entry nodes:")
		for _, entry := range result.Entries {
			fmt.Fprintf(w, "  %s\n", entry)
		}
	}
	if len(result.Completed) > 0 {
		fmt.Fprintln(w, "Completion nodes:")
		for _, comp := range result.Completed {
			fmt.Fprintf(w, "  %s\n", comp)
		}
	}
	if len(result.Notifiers) > 0 {
		fmt.Fprintf(w, "Notifiers:     %s\n", strings.Join(result.Notifiers, ", "))
	} else {
		fmt.Fprintln(w, "Notifiers:     none configured")
	}
}
