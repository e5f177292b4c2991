package cmd

import (
	"context"

	"github.com/spigell/resume-classifier/internal/mcpserver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the classifier tools over MCP on stdin/stdout",
	Run: func(_ *cobra.Command, _ []string) {
		serveMCP()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func serveMCP() {
	ctx := context.Background()

	a := bootstrap(ctx)
	defer a.Close()

	mode := a.loadModel(ctx)
	a.logger.Info("starting mcp server", zap.String("version", resolveVersion()), zap.String("mode", string(mode)))

	if err := mcpserver.Serve(mcpserver.New(a.service, resolveVersion(), a.logger)); err != nil {
		a.logger.Fatal("mcp server failed", zap.Error(err))
	}
}
