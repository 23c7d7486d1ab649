package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/polycephaly/internal/config"
	"github.com/Iron-Ham/polycephaly/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Read and filter the host log",
	Long: `Read polycephaly.log from logging.dir, including rotated backups, and
print the entries in time order.

Examples:
  polycephaly logs --process worker-a --level warn
  polycephaly logs --thread heartbeat --since 10m
  polycephaly logs --grep "timed out" --format csv`,
	RunE: runLogs,
}

var (
	logsProcess string
	logsThread  string
	logsLevel   string
	logsSince   time.Duration
	logsGrep    string
	logsFormat  string
	logsTail    int
)

func init() {
	logsCmd.Flags().StringVarP(&logsProcess, "process", "p", "", "only entries from this process")
	logsCmd.Flags().StringVarP(&logsThread, "thread", "t", "", "only entries from this child thread")
	logsCmd.Flags().StringVarP(&logsLevel, "level", "l", "", "minimum level (debug, info, warn, error)")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "only entries newer than this")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "only entries whose message contains this text")
	logsCmd.Flags().StringVarP(&logsFormat, "format", "f", "text", "output format ("+strings.Join(logging.ExportFormats(), ", ")+")")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 0, "only the last N entries (0 for all)")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Logging.Dir == "" {
		return fmt.Errorf("logging.dir is not set; logs go to stderr")
	}

	entries, err := logging.ReadEntries(cfg.Logging.Dir, cfg.Logging.MaxBackups)
	if err != nil {
		return err
	}

	filter := logging.Filter{
		Level:    logsLevel,
		Process:  strings.ToLower(logsProcess),
		Thread:   strings.ToLower(logsThread),
		Contains: logsGrep,
	}
	if logsSince > 0 {
		filter.Since = time.Now().Add(-logsSince)
	}
	entries = logging.FilterEntries(entries, filter)

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	return logging.WriteEntries(cmd.OutOrStdout(), entries, logsFormat)
}
