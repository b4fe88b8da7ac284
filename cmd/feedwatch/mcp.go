// ABOUTME: MCP server command for feedwatch CLI
// ABOUTME: Starts stdio-based MCP server for AI agent integration

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harper/feedwatch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agents",
	Long: `Start the Model Context Protocol (MCP) server on stdio.

This allows AI agents like Claude to inspect watched feeds, run checks,
read retained items and manage subscriptions through structured tools.

The server communicates via JSON-RPC on stdin/stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol, so announcements are discarded
		p, err := newPoller(io.Discard)
		if err != nil {
			return err
		}

		server := mcp.NewServer(store, p, cfg.GetDefaultTTL())
		if err := server.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
