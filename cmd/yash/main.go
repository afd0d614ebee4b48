package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"yash/internal/config"
	"yash/internal/logging"
	"yash/internal/shell"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "yash",
	Short:         "A small interactive shell with job control",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return errors.Wrap(err, "error loading config")
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		logger, closer, err := logging.New(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return errors.Wrap(err, "error initializing logging")
		}
		defer closer.Close()

		s, err := shell.New(cfg, shell.WithLogger(logger))
		if err != nil {
			return errors.Wrap(err, "error initializing shell")
		}
		return s.Run()
	},
}

func init() {
	defaultConfig := ".yash.yml"
	if home, err := os.UserHomeDir(); err == nil {
		defaultConfig = filepath.Join(home, defaultConfig)
	}
	rootCmd.Flags().StringVar(&configFile, "config", defaultConfig, "path to the YAML configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "diagnostic log level (trace, debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
