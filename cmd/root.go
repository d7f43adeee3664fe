package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evrptw/config"
	"github.com/kilianp07/evrptw/infra/logger"
)

var (
	cfgPath  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:               "evrptw",
	Short:             "Compile and solve (E)VRPTW benchmark instances as MILPs",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if err := logger.SetLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	cfg = c
	return nil
}
