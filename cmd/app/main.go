package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the base command for the SwanPulse CLI
var rootCmd = &cobra.Command{
	Use:   "swanpulse",
	Short: "Real-time black swan and peak score relay",
	Long: `SwanPulse holds one connection to the platform score stream and
relays it to any number of clients over SSE and WebSocket, alongside a
cached proxy for the history and chart routes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
