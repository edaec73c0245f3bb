package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mickamy/qbplan/internal/config"
	"github.com/mickamy/qbplan/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "qbplan",
	Short: "DB2 access plan visualizer",
	Long: `qbplan rebuilds the access plan tree of a query from its PLAN_TABLE rows and
renders it as a text tree, an HTML report or JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.NewConsole(cmd.ErrOrStderr(), logLevel)
		if err != nil {
			return err
		}
		logging.SetGlobalLogger(logger)
		return applyConfigPath(configPath)
	},
}

// Execute executes the root command.
func Execute(version string) error {
	rootCmd.Version = displayVersion(version)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func applyConfigPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("QBPLAN_CONFIG"))
	}
	return config.Apply(path)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (JSON or YAML). Falls back to $QBPLAN_CONFIG")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
}
