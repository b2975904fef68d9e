package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indigo-web/turnstile"
	"github.com/indigo-web/turnstile/config"
	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/filters"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/method"
	"github.com/indigo-web/turnstile/http/mime"
	"github.com/indigo-web/turnstile/metrics"
	"github.com/indigo-web/turnstile/router/mux"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	port     uint16
	address  string
	certFile string
	keyFile  string
	logLevel string
	runAs    string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start the server with the specified configuration.

The server is started in TLS mode if both the certificate and the private key
are provided, either in the config file or via flags.

Examples:
  # Start with defaults on :8080
  turnstile serve

  # Start with custom config
  turnstile serve --config /etc/turnstile/config.yaml

  # Serve HTTPS
  turnstile serve --port 8443 --cert cert.pem --key key.pem`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	bindServeFlags(serveCmd)
}

func bindServeFlags(cmd *cobra.Command) {
	cmd.Flags().Uint16VarP(&serveFlags.port, "port", "p", 0, "override listening port")
	cmd.Flags().StringVarP(&serveFlags.address, "address", "a", "", "override listening address")
	cmd.Flags().StringVar(&serveFlags.certFile, "cert", "", "PEM-encoded certificate chain")
	cmd.Flags().StringVar(&serveFlags.keyFile, "key", "", "PEM-encoded private key")
	cmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&serveFlags.runAs, "run-as", "", "user to switch to after the socket is bound")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, cfgFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	app, collector := buildApp(cfg, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if collector != nil {
		metricsServer := serveMetrics(cfg.Metrics.Address, collector, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.Stop(); err != nil {
			logger.Warn("stopping the listener", "err", err)
		}
	}()

	if cfg.IsTLS() {
		err = app.StartTLS(cfg.Server.Port, cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.Server.Address)
	} else {
		err = app.Start(cfg.Server.Port, cfg.Server.Address)
	}

	app.Wait()

	return err
}

// loadConfig reads the config file if any and applies the flags on top of it.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if len(path) == 0 {
		cfg = config.Default()
		err = config.ApplyEnv(cfg)
	} else {
		cfg, err = config.Load(path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = serveFlags.port
	}
	if flags.Changed("address") {
		cfg.Server.Address = serveFlags.address
	}
	if flags.Changed("cert") {
		cfg.TLS.CertFile = serveFlags.certFile
	}
	if flags.Changed("key") {
		cfg.TLS.KeyFile = serveFlags.keyFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = serveFlags.logLevel
	}
	if flags.Changed("run-as") {
		cfg.Server.RunAs = serveFlags.runAs
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// buildApp wires the demo routes and the default filters. The returned collector is nil
// if metrics are disabled.
func buildApp(cfg *config.Config, logger *slog.Logger) (*turnstile.App, *metrics.Collector) {
	app := turnstile.New(cfg, newRouter(cfg)).WithLogger(logger)

	requestFilters := []filter.Entry{
		filter.With(filters.RequestID(), filter.High),
		filter.With(filters.AllowMethods(method.GET, method.HEAD, method.POST), filter.Medium),
	}
	responseFilters := []filter.Entry{
		filter.With(filters.ServerHeader(cfg.Server.Name), filter.High),
		filter.With(filters.AccessLog(logger), filter.Low),
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics, nil)
		app.WithMetrics(collector)
		responseFilters = append(responseFilters, filter.With(filters.Metrics(collector), filter.Medium))
	}

	// registration can't fail before the app is started
	_ = app.RegisterRequestFilters(requestFilters...)
	_ = app.RegisterResponseFilters(responseFilters...)

	return app, collector
}

func newRouter(cfg *config.Config) *mux.Mux {
	return mux.New().
		Get("/", func(_ *http.Request, resp *http.Response) {
			resp.ContentType(mime.Plain).String("Hello from " + cfg.Server.Name + "!\n")
		}).
		Get("/health", func(req *http.Request, resp *http.Response) {
			resp.JSON(map[string]any{
				"status":    "ok",
				"version":   Version,
				"encrypted": req.Env.Encryption != 0,
			})
		}).
		Post("/echo", func(req *http.Request, resp *http.Response) {
			resp.ContentType(mime.Plain).Bytes(req.Body)
		})
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) *stdhttp.Server {
	handler := stdhttp.NewServeMux()
	handler.Handle("/metrics", collector.Handler())

	server := &stdhttp.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("metrics server", "err", err)
		}
	}()

	return server
}
