package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"SwanPulse/internal/di"
	"SwanPulse/internal/domain/models"
	"SwanPulse/internal/stream"
	"SwanPulse/pkg/config"
	"SwanPulse/pkg/logger"
	"SwanPulse/pkg/util"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// tailCmd prints the live stream to the terminal
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print live score updates",
	Long: `Connect to the platform stream directly and print every update
and connection status change until interrupted.

Examples:
  swanpulse tail
  swanpulse tail --config config/config.yaml`,
	RunE: runTail,
}

func init() {
	rootCmd.AddCommand(tailCmd)
}

var (
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	statusStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	signalStyles = map[models.Signal]lipgloss.Style{
		models.SignalBuy:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		models.SignalHold: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		models.SignalSell: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
)

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	// stdout belongs to the score lines
	l := logger.NewWriter(os.Stderr, zerolog.WarnLevel)
	m, cleanup, err := di.InitializeStream(cfg, l)
	if err != nil {
		return fmt.Errorf("stream initialization failed: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return tail(ctx, m, cmd.OutOrStdout())
}

// tail prints until ctx is done.
func tail(ctx context.Context, m *stream.Manager, out io.Writer) error {
	v := stream.NewView(m)
	defer v.Close()

	var p tailPrinter
	p.print(out, v.State())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-v.Changes():
			p.print(out, v.State())
		}
	}
}

type tailPrinter struct {
	lastTS int64
	status string
}

func (p *tailPrinter) print(out io.Writer, st models.ViewState) {
	if st.Data != nil && st.Data.Timestamp > p.lastTS {
		p.lastTS = st.Data.Timestamp
		fmt.Fprintln(out, renderEvent(st.Data))
	}
	if s := renderStatus(st); s != p.status {
		p.status = s
		if s != "" {
			fmt.Fprintln(out, s)
		}
	}
}

func renderEvent(ev *models.StreamEvent) string {
	ts := util.FromMillis(ev.Timestamp).Local().Format("15:04:05")
	signal, style := "----", lipgloss.NewStyle()
	var combined float64
	if ev.Market != nil {
		signal = string(ev.Market.Signal)
		combined = ev.Market.CombinedScore
		if s, ok := signalStyles[ev.Market.Signal]; ok {
			style = s
		}
	}
	line := fmt.Sprintf("%s  %s  %s %.0f",
		timeStyle.Render(ts),
		style.Width(4).Render(signal),
		labelStyle.Render("combined"), combined,
	)
	if bs := ev.BlackSwan; bs != nil {
		line += fmt.Sprintf("  %s %.0f (%s, %+.1f)", labelStyle.Render("blackswan"), bs.Score, bs.Confidence, bs.Change)
	}
	if pk := ev.Peak; pk != nil {
		line += fmt.Sprintf("  %s %.0f (%+.1f)", labelStyle.Render("peak"), pk.Score, pk.Change)
	}
	return line
}

func renderStatus(st models.ViewState) string {
	switch {
	case st.Error != "":
		return errorStyle.Render(st.Error)
	case st.IsReconnecting:
		return statusStyle.Render("reconnecting...")
	case st.IsLoading && !st.IsConnected:
		return statusStyle.Render("connecting...")
	default:
		return ""
	}
}
