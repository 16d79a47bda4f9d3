// Command chatplanner runs the chat planner: an HTTP chat transport that
// turns free-text messages into calendar events and tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/chatplanner/internal/config"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "chatplanner",
	Short:         "Turn chat messages into calendar events and tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PLANNER_CONFIG"), "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(usersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if _, err := observability.Setup(cfg.Logging.Level, cfg.Logging.Development); err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	return cfg, nil
}
