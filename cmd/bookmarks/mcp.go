package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcppkg "github.com/knowledge-engine/bookmarks/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server so AI agents can search the
enriched bookmarks. Communication happens over stdin and stdout; logs go to
stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := globalEngine.LoadIndex(); err != nil {
		return err
	}

	server, err := mcppkg.NewServer(globalEngine, version, globalLogger.WithField("component", "mcp"))
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
