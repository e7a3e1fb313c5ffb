// Package main is the entry point for the hdscope CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ul-gh/hdscope/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command that opens a client.
type globalFlags struct {
	envFile  string
	dataDir  string
	resource string
	model    string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "hdscope",
		Short: "Remote waveform acquisition for Rigol and R&S oscilloscopes",
		Long: `hdscope reads full memory-depth waveform records from Rigol DS1000Z and
Rohde & Schwarz RTH oscilloscopes over SCPI, stores them as captures and
serves them over HTTP and MCP.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "Data directory (default: $DATA_DIR or ~/.hdscope)")
	pf.StringVarP(&flags.resource, "resource", "r", "", "Instrument resource, e.g. TCPIP::192.168.1.20::5555::SOCKET")
	pf.StringVarP(&flags.model, "model", "m", "", "Driver: auto, rigol, rth or sim")

	cmd.AddCommand(serveCmd(&flags))
	cmd.AddCommand(stdioCmd(&flags))
	cmd.AddCommand(captureCmd(&flags))
	cmd.AddCommand(capturesCmd(&flags))
	cmd.AddCommand(idnCmd(&flags))
	cmd.AddCommand(runCmd(&flags))
	cmd.AddCommand(stopCmd(&flags))
	cmd.AddCommand(mdepthCmd(&flags))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables,
// then applies the global flags on top.
func loadConfig(flags *globalFlags) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(flags.envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}

	var opts []config.AppConfigOption
	if flags.dataDir != "" {
		opts = append(opts, config.WithDataDir(flags.dataDir))
	}
	if flags.resource != "" {
		opts = append(opts, config.WithScopeOptions(config.WithResource(flags.resource)))
	}
	opts = append(opts, config.WithScopeOptions(config.WithModel(flags.model)))

	return cfg.Apply(opts...), nil
}
