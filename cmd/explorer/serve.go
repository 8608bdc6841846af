package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelbrown/explorer/internal/assistant"
	"github.com/michaelbrown/explorer/internal/logging"
	"github.com/michaelbrown/explorer/internal/runner"
	"github.com/michaelbrown/explorer/internal/sandbox"
	"github.com/michaelbrown/explorer/internal/server"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Explorer web server",
	Long: `Start the Explorer HTTP server with REST API and WebSocket support.

The lesson page is available at the root URL. API endpoints are under /api.

Examples:
  explorer serve
  explorer serve --port 9090
  explorer serve --backend docker`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sb, err := cfg.NewSandbox()
	if err != nil {
		return err
	}

	warnUnbounded(logger, sb)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var explainer assistant.Explainer
	if cfg.AssistantReady() {
		explainer = assistant.NewClient(cfg.Assistant.BaseURL, cfg.Assistant.APIKey, cfg.Assistant.Model)
		logger.Info("assistant enabled", zap.String("model", cfg.Assistant.Model))
	}

	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	srv, err := server.New(cfg, runner.New(sb, store, logger), explainer, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-sigCh
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	if err := srv.Start(port); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}

// warnUnbounded flags backends that cannot cap a snippet's memory.
func warnUnbounded(logger *zap.Logger, sb sandbox.Sandbox) {
	if sb.Name() == "starlark" {
		logger.Warn("starlark backend has no memory limit; use --backend docker when serving untrusted users")
	}
}
