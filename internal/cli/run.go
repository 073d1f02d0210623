package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logdog-io/logdog/internal/config"
	"github.com/logdog-io/logdog/internal/engine"
	"github.com/logdog-io/logdog/internal/journal"
	"github.com/logdog-io/logdog/internal/metrics"
	"github.com/logdog-io/logdog/internal/notify"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config-file>",
		Short: "Start watching the pipeline log",
		Long: `Start the watchdog with the given configuration.

The watchdog tails the configured log file, tracks node transitions against
the rule graph, and pushes alerts to the configured notification platforms.
With --db, every event is also journaled to SQLite for later inspection
with the history command.

Example:
  logdog run ./watchdog.yaml
  logdog run ./watchdog.yaml --db ./events.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchdog(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal events to this SQLite database")

	return cmd
}

// logSink mirrors every event into the structured log. Engine diagnostics
// stay at debug level so default output shows lifecycle events only.
type logSink struct{}

func (logSink) HandleEvent(ev engine.Event) {
	level := slog.LevelInfo
	if ev.Kind == engine.KindEngineLog {
		level = slog.LevelDebug
	}
	slog.Log(context.Background(), level, "watchdog event",
		"seq", ev.Seq,
		"kind", ev.Kind.String(),
		"rule", ev.Rule,
		"node", ev.Node,
		"elapsed_ms", ev.ElapsedMS,
		"description", ev.Description,
	)
}

func runWatchdog(opts *RunOptions, configPath string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("loading configuration", "path", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	// The session token is fixed up front so the journal sink can stamp
	// rows for a session the engine reports under the same token.
	session := engine.UUIDv7Generator{}.Generate()
	sinks := []engine.Sink{logSink{}}

	dispatcher := notify.NewDispatcher(cfg)
	if dispatcher.Available() {
		slog.Info("notifications enabled", "platforms", dispatcher.Names(), "notify_when", cfg.NotifyEvents())
		sinks = append(sinks, dispatcher)
	} else {
		slog.Info("no notification platform configured, events are logged only")
	}

	if opts.Database != "" {
		slog.Info("opening event journal", "path", opts.Database)
		j, err := journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		sinks = append(sinks, journal.NewSink(j, session, nil))
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if addr := cfg.Monitoring.MetricsListen; addr != "" {
		go func() {
			slog.Info("metrics listener starting", "addr", addr)
			if err := metrics.Serve(ctx, addr); err != nil &&
				!errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("metrics listener stopped", "error", err)
			}
		}()
	}

	eng := engine.New(cfg, engine.MultiSink(sinks...),
		engine.WithSessionGenerator(engine.NewFixedGenerator(session)))

	printStatus(cmd.OutOrStdout(), statusFromConfig(cfg))
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	// Run only fails at startup (log file unopenable); after that it runs
	// until cancelled.
	if err := eng.Run(ctx); err != nil {
		return WrapExitError(ExitCommandError, "watchdog startup failed", err)
	}

	slog.Info("watchdog stopped gracefully")
	return nil
}
