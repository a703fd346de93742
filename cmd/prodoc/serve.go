package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/2005lakshya/prodoc/internal/config"
	"github.com/2005lakshya/prodoc/internal/server"
)

var (
	serveHost string
	servePort string
	logLevel  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prodoc server",
	Long: `Start the prodoc HTTP server.

The server provides:
  - POST /api/analyze - Analyze an uploaded document
  - GET  /api/config  - Active configuration (secrets redacted)
  - GET  /health      - Basic server health check
  - GET  /status      - Registered extractors, detectors and load

Examples:
  prodoc serve                    # Start on default port 8080
  prodoc serve --port 3000        # Start on custom port
  prodoc serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		level := slog.LevelInfo
		if logLevel == "debug" {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.OnChange(func(*config.Config) {
			logger.Info("configuration reloaded")
		})
		mgr.WatchConfig()

		cfg := mgr.Get()
		host := serveHost
		if host == "" {
			host = cfg.Server.Host
		}
		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: info or debug")

	rootCmd.AddCommand(serveCmd)
}
