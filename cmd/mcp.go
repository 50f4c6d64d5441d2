package cmd

import (
	"github.com/huangsam/leadscore/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the leadscore MCP server",
	Long:  `Launch an MCP server that lets AI agents score contacts and tune framework configurations via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr, stdout carries the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
