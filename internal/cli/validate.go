package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logdog-io/logdog/internal/config"
)

// ValidationResult holds the outcome of a config validation.
type ValidationResult struct {
	Valid     bool   `json:"valid"`
	Path      string `json:"path"`
	Rules     int    `json:"rules"`
	Entries   int    `json:"entries"`
	Completed int    `json:"completed"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a watchdog configuration",
		Long: `Validate a watchdog configuration file without starting the watchdog.

Checks YAML syntax, the configuration schema, and rule name uniqueness.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
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
		return NewExitError(ExitFailure, "configuration invalid")
	}

	result := ValidationResult{
		Valid:     true,
		Path:      path,
		Rules:     len(cfg.Rules),
		Entries:   len(cfg.Entries),
		Completed: len(cfg.Completed),
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("%s: valid (%d rules, %d entries, %d completion nodes)",
		path, result.Rules, result.Entries, result.Completed))
}
