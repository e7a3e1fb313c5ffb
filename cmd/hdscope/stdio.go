package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ul-gh/hdscope/internal/mcp"
)

func stdioCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants list stored captures, read their statistics and,
when an instrument is configured, acquire new waveforms. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd.Context(), flags)
		},
	}
}

func runStdio(ctx context.Context, flags *globalFlags) error {
	client, cfg, logger, err := openClient(ctx, flags)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	logger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
		slog.Bool("instrument", client.Connected()),
	)

	var (
		acquirer mcp.Acquirer
		status   mcp.StatusReader
	)
	if client.Connected() {
		acquirer, status = client.Acquisition, client.Instrument
	}
	return mcp.NewServer(client.Captures, acquirer, status, version, logger).ServeStdio()
}
