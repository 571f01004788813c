package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vendeza/Glavred/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server exposing the workspace as tools",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an agent drive a persistent editing session: update the
draft, score it, apply fixes, and manage version history. Configure
in your agent with:

  {
    "mcpServers": {
      "glavred": { "command": "glavred", "args": ["mcp"] }
    }
  }

Available tools: glavred_get_workspace, glavred_update_draft,
glavred_analyze, glavred_apply_fixes, glavred_list_versions,
glavred_save_version, glavred_remove_version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := newWorkspace()
		if err != nil {
			return err
		}
		return mcp.NewServer(ws).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
