package main

import (
	"fmt"

	"SwanPulse/internal/di"
	"SwanPulse/pkg/config"

	"github.com/spf13/cobra"
)

// serveCmd runs the relay server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `Run the HTTP relay until interrupted.

Examples:
  swanpulse serve
  swanpulse serve --config /etc/swanpulse/config.yaml
  PLATFORM_API_URL=https://api.example swanpulse serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run(cmd.Context())
}
