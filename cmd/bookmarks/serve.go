package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/bookmarks/internal/api"
)

var (
	serveAddr   string
	serveEnrich bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveEnrich, "enrich", false, "start an enrichment run in the background on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := globalEngine.LoadIndex(); err != nil {
		return err
	}
	if serveEnrich {
		if err := globalEngine.StartEnrich(); err != nil {
			return err
		}
	}

	addr := serveAddr
	if addr == "" {
		addr = globalConfig.API.Addr
	}
	server := api.NewServer(globalEngine, globalLogger.WithField("component", "api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		globalLogger.WithField("signal", sig.String()).Info("Shutting down")
	}

	globalEngine.StopEnrich()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
