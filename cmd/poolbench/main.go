// Command poolbench drives a slot pool with a configurable concurrent load
// and prints a JSON report of throughput, latency and pool statistics.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/slotpool/pkg/config"
	"github.com/ajitpratap0/slotpool/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile, logLevel string

	root := &cobra.Command{
		Use:   "poolbench",
		Short: "poolbench - load generator for slotpool",
		Long: `poolbench exercises a concurrent slot pool with acquire/hold/release cycles.
Pool settings come from a YAML file (--config) and SLOTPOOL_* environment variables.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.Logger.Level = logLevel
		}
		// stdout carries the JSON report
		if len(cfg.Logger.OutputPaths) == 0 {
			cfg.Logger.OutputPaths = []string{"stderr"}
		}
		if err := logger.Init(cfg.Logger); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "poolbench v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newConfigCmd(loadConfig))
	root.AddCommand(newRunCmd(loadConfig))

	return root
}

func newConfigCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(output, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "slotpool.yaml", "Destination file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
