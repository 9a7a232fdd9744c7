package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/server"
	"github.com/MeKo-Tech/cardscan/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the scanning API",
	Long: `Start an HTTP server that exposes the scanner over REST and WebSocket.

The server provides the following endpoints:
  GET  /health               - Health check endpoint
  GET  /metrics              - Prometheus metrics
  GET  /resolve?q=&manual=   - Resolve text to a card name
  GET  /printings?name=      - List the printings of a card
  POST /scan/image           - Read and resolve an uploaded frame (field "image")
  GET  /ws/scan              - Live session: send frames as binary messages,
                               {"type":"pause|resume|reset"} as text

Examples:
  cardscan serve
  cardscan serve --port 8080
  cardscan serve --host 0.0.0.0 --port 3000 --snapshot cards.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig()
	if err != nil {
		return err
	}

	extractor, backend, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	res, err := newResolver(cfg)
	if err != nil {
		return err
	}

	serverConfig := cfg.ToServerConfig()
	serverConfig.Version = version.Version

	scanServer, err := server.NewServer(serverConfig, server.Deps{
		Detector:  newDetector(cfg),
		Extractor: extractor,
		Resolver:  res,
		Session:   cfg.ToScannerConfig(),
		Logger:    slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	mux := http.NewServeMux()
	scanServer.SetupRoutes(mux)

	timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	go func() {
		slog.Info("Starting scan server", "host", cfg.Server.Host, "port", cfg.Server.Port, "version", version.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Live sessions hold hijacked connections that Shutdown does not track.
	if err := scanServer.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 10, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("requests-per-minute", 0, "maximum scan requests per minute per client (0 = unlimited)")
	serveCmd.Flags().Int("requests-per-day", 0, "maximum scan requests per day per client (0 = unlimited)")
	serveCmd.Flags().Int64("max-data-per-day", 0, "maximum uploaded MB per day per client (0 = unlimited)")

	for key, flag := range map[string]string{
		"server.host":                           "host",
		"server.port":                           "port",
		"server.cors_origin":                    "cors-origin",
		"server.max_upload_mb":                  "max-upload-size",
		"server.timeout_sec":                    "timeout",
		"server.shutdown_timeout":               "shutdown-timeout",
		"server.rate_limit.requests_per_minute": "requests-per-minute",
		"server.rate_limit.requests_per_day":    "requests-per-day",
		"server.rate_limit.max_data_per_day_mb": "max-data-per-day",
	} {
		_ = viper.BindPFlag(key, serveCmd.Flags().Lookup(flag))
	}
}
