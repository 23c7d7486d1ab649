package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/polycephaly/internal/config"
	"github.com/Iron-Ham/polycephaly/internal/host"
	"github.com/Iron-Ham/polycephaly/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start every configured process",
	Long: `Start the main process and every configured peer, and run until
interrupted. Heartbeats flow between peers through the main process.

Editing logging.level in the config file while running changes the log level
without a restart. Router counters are printed on exit.`,
	RunE: runRun,
}

var runDuration time.Duration

func init() {
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewRotatingLogger(cfg.Logging.Dir, cfg.Logging.Level, logging.Rotation{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	h, err := host.New(cfg, logger)
	if err != nil {
		return err
	}

	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloadLogLevel(e, logger)
		})
		viper.WatchConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Running %d processes (main: %s). Press Ctrl+C to stop.\n",
		len(h.Processes()), cfg.Messenger.MainProcess)

	runErr := h.Run(ctx)
	printStats(cmd.OutOrStdout(), h.Stats())
	return runErr
}

// reloadLogLevel applies logging.level from a changed config file. Other
// settings need a restart.
func reloadLogLevel(e fsnotify.Event, logger *logging.Logger) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
		return
	}
	if logging.ParseLevel(cfg.Logging.Level) == logger.Level() {
		return
	}
	logger.SetLevel(cfg.Logging.Level)
	logger.Info("log level changed", "file", e.Name, "level", logger.Level())
}

func printStats(w io.Writer, stats host.Stats) {
	r := stats.Router
	fmt.Fprintln(w, "\nRouter:")
	fmt.Fprintf(w, "  sent:            %d\n", r.Sent)
	fmt.Fprintf(w, "  relayed:         %d\n", r.Relayed)
	fmt.Fprintf(w, "  dispatched:      %d\n", r.Dispatched)
	fmt.Fprintf(w, "  unmatched:       %d\n", r.Unmatched)
	fmt.Fprintf(w, "  failed:          %d\n", r.Failed)
	fmt.Fprintf(w, "  callback errors: %d\n", r.CallbackErrors)
	fmt.Fprintf(w, "  dead letters:    %d\n", r.DeadLetters)

	names := make([]string, 0, len(stats.Heartbeats))
	for name := range stats.Heartbeats {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintln(w, "\nHeartbeats:")
	for _, name := range names {
		hb := stats.Heartbeats[name]
		fmt.Fprintf(w, "  %-12s sent=%d answered=%d acked=%d failures=%d rtt=%s\n",
			name, hb.Sent, hb.Answered, hb.Acked, hb.SendFailures, hb.LastRoundTrip)
	}

	act := stats.Activity
	types := slices.Sorted(maps.Keys(act.Events))
	fmt.Fprintln(w, "\nEvents:")
	for _, typ := range types {
		fmt.Fprintf(w, "  %-20s %d\n", typ, act.Events[typ])
	}
	for _, owner := range slices.Sorted(maps.Keys(act.ThreadFailures)) {
		fmt.Fprintf(w, "  thread failures in %s: %d\n", owner, act.ThreadFailures[owner])
	}
	if act.LastFailure != "" {
		fmt.Fprintf(w, "  last envelope failure: %s\n", act.LastFailure)
	}
}
