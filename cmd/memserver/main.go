// Command memserver serves the memory MCP server over stdio or HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	daemon "github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-memory-go/pkg/config"
	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/observability"
	"github.com/ajitpratap0/mcp-memory-go/pkg/server"
	"github.com/ajitpratap0/mcp-memory-go/pkg/store"
	"github.com/ajitpratap0/mcp-memory-go/pkg/transport"
)

var (
	configPath    string
	transportType string
	listenAddr    string
	profile       string
	logLevel      string
	daemonMode    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "memserver",
		Short:        "MCP server exposing calculator, echo and memory tools",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&transportType, "transport", config.TransportStdio, "transport to serve on (stdio or http)")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "listen address for the http transport")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", config.ProfileFull, "built-in tool set (full or example)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&daemonMode, "daemon", false, "run in background (http transport only)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve MCP requests (default)",
			RunE:  runServe,
		},
		newQuickstartCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to start server:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags that were set explicitly
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport.Type = transportType
	}
	if flags.Changed("listen") {
		cfg.Transport.Listen = listenAddr
	}
	if flags.Changed("profile") {
		cfg.Server.Profile = profile
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LoggingConfig) (logging.Logger, error) {
	formatter, err := logging.NewFormatter(cfg.Format)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, formatter)
	logger.SetLevel(level)
	return logger, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if daemonMode {
		if cfg.Transport.Type != config.TransportHTTP {
			return errors.New("--daemon requires the http transport")
		}
		cntxt := &daemon.Context{
			PidFileName: "memserver.pid",
			PidFilePerm: 0644,
		}
		child, err := cntxt.Reborn()
		if err != nil {
			return err
		}
		if child != nil {
			return nil
		}
		defer cntxt.Release()
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []server.ServerOption{
		server.WithName(cfg.Server.Name),
		server.WithVersion(cfg.Server.Version),
		server.WithProfile(server.Profile(cfg.Server.Profile)),
		server.WithLogger(logger),
		server.WithRequestTimeout(cfg.Transport.RequestTimeout),
	}
	if cfg.Store.Seed != nil {
		opts = append(opts, server.WithStore(store.Seeded(cfg.Store.Seed)))
	}

	if cfg.Metrics.Enabled {
		metrics, err := observability.NewMetricsProvider(observability.MetricsConfig{
			ServiceName:    cfg.Server.Name,
			ServiceVersion: cfg.Server.Version,
			Namespace:      cfg.Metrics.Namespace,
		})
		if err != nil {
			return err
		}
		opts = append(opts, server.WithMetrics(metrics))
	}

	if cfg.Tracing.Enabled {
		tracer, err := observability.NewTracingProvider(observability.TracingConfig{
			ServiceName:    cfg.Server.Name,
			ServiceVersion: cfg.Server.Version,
			Environment:    cfg.Tracing.Environment,
			ExporterType:   observability.ExporterType(cfg.Tracing.Exporter),
			Endpoint:       cfg.Tracing.Endpoint,
			Headers:        cfg.Tracing.Headers,
			Insecure:       cfg.Tracing.Insecure,
			SampleRate:     cfg.Tracing.SampleRate,
			SetGlobal:      true,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := tracer.Shutdown(context.Background()); err != nil {
				logger.WithError(err).Warn("Failed to flush traces")
			}
		}()
		opts = append(opts, server.WithTracing(tracer))
	}

	if cfg.Transport.Type == config.TransportHTTP {
		srv, err := server.New(nil, opts...)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx, cfg.Transport.Listen)
	}

	t := transport.NewStdioTransport(os.Stdin, os.Stdout,
		transport.WithLogger(logger),
		transport.WithRequestTimeout(cfg.Transport.RequestTimeout))
	srv, err := server.New(t, opts...)
	if err != nil {
		return err
	}

	logger.Info("MCP server running on stdio")
	defer srv.Stop()
	return srv.Start(ctx)
}
