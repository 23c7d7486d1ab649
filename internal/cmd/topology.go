package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/polycephaly/internal/config"
	"github.com/Iron-Ham/polycephaly/internal/host"
)

var (
	headerColor = lipgloss.Color("#A78BFA") // Purple
	hubColor    = lipgloss.Color("#10B981") // Green
	borderColor = lipgloss.Color("#6B7280") // Gray

	headerStyle = lipgloss.NewStyle().Foreground(headerColor).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	hubStyle    = cellStyle.Foreground(hubColor)
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Show configured processes and how they route",
	Long: `Show every configured process with its mailbox size, routing mode,
heartbeat interval, and peers.

The main process is the hub: messages between other processes are put on its
mailbox and relayed from there. Output is plain text when stdout is not a
terminal.`,
	RunE: runTopology,
}

var topologyPlain bool

func init() {
	topologyCmd.Flags().BoolVar(&topologyPlain, "plain", false, "always print plain text")
	rootCmd.AddCommand(topologyCmd)
}

func runTopology(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	styled := !topologyPlain && term.IsTerminal(int(os.Stdout.Fd()))
	return renderTopology(cmd.OutOrStdout(), host.Describe(cfg), styled)
}

func renderTopology(w io.Writer, nodes []host.Node, styled bool) error {
	headers := []string{"PROCESS", "MAILBOX", "ROUTING", "HEARTBEAT", "PEERS"}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		peers := strings.Join(n.Peers, ", ")
		if peers == "" {
			peers = "-"
		}
		rows = append(rows, []string{n.Name, strconv.Itoa(n.MailboxSize), n.Routing, n.Heartbeat, peers})
	}

	if !styled {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(nodes) && nodes[row].Routing == host.RoutingHub:
				return hubStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
