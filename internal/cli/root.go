// Package cli wires the coastwatch subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coastwatch-systems/coastwatch/internal/config"
	"github.com/coastwatch-systems/coastwatch/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	log     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "coastwatch",
	Short: "Ocean hazard reporting platform",
	Long: `coastwatch collects geotagged ocean hazard reports from citizens,
routes them through analyst verification, and serves live hotspot and
dashboard views to coastal monitoring teams.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log = logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
		logging.SetDefault(log)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}
