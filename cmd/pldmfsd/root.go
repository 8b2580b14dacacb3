package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/config"
)

var (
	// configPath is shared by every subcommand that reads the configuration
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "pldmfsd",
	Short: "PLDM OEM file I/O responder",
	Long: `pldmfsd answers the OEM file I/O command set of PLDM (DSP0240 type 0x3F)
on behalf of a host. Files listed in the file table and typed files (PELs,
LIDs, dumps, certificates, progress codes) are moved between BMC storage and
host memory through the DMA bridge device.

Commands:
  serve     Run the responder
  init      Write a default configuration file
  table     Show the file table the responder would serve
  version   Print version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file (default: "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(serveCmd, initCmd, tableCmd, versionCmd)
}

// loadConfig loads the configuration and applies the logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return nil, err
	}
	return cfg, nil
}
