package cmd

import (
	"context"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/docchat/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document search and question answering tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdout carries the protocol, so logs always go to stderr as JSON.
		cfg.Log.Format = "json"
		log := newLogger(cfg)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		go a.sessions.RunSweeper(ctx, sweepInterval, nil)

		mcpserver.Version = Version
		log.Info().Str("search", string(cfg.Search.Backend)).Msg("docchat MCP server started on stdio")

		srv := mcpserver.NewServer(a.retriever, a.controller, a.sessions)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
