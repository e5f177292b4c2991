package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/resume-classifier/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the classification HTTP API",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "address to listen on (overrides server.host)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides server.port and PORT)")
}

func serve(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := bootstrap(ctx)
	defer a.Close()

	host := a.config.Server.Host
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}
	port := a.config.Server.Port
	if v, _ := cmd.Flags().GetInt("port"); v > 0 {
		port = v
	}

	mode := a.loadModel(ctx)
	a.logger.Info("starting the resume-classifier",
		zap.String("version", resolveVersion()),
		zap.String("mode", string(mode)),
		zap.Int("roles", a.catalog.Len()),
	)

	handler := server.NewRouter(a.service, a.logger, server.Options{
		MaxUploadBytes: int64(a.config.Extract.MaxUploadMB) << 20,
	})

	if err := server.New(host, port, handler, a.config.Server.ShutdownTimeout, a.logger).Run(ctx); err != nil {
		a.logger.Fatal("http server failed", zap.Error(err))
	}
	a.logger.Info("server stopped")
}
