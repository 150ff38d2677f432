// aurora-proxy serves the dashboard proxy handlers in front of the Aurora
// telemetry API.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (--config), then AURORA_* environment variables, then flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/joy-dx/auroraproxy"
	"github.com/joy-dx/auroraproxy/config"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/handler"
	"github.com/joy-dx/auroraproxy/relays"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string

	flagSet := pflag.NewFlagSet("aurora-proxy", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	listen := flagSet.String("listen", "", "listen address (overrides AURORA_LISTEN_ADDR)")
	upstream := flagSet.String("upstream", "", "upstream base URL (overrides AURORA_API_URL)")
	logLevel := flagSet.String("log-level", "", "debug, info, warn or error")
	extra := dto.ExtraHeaders{}
	flagSet.Var(extra, "extra-header", "header sent on every upstream call, key=value[,key=value]")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := config.DefaultProxySvcConfig()
	if configPath != "" {
		fileCfg, err := config.FromFile(configPath)
		if err != nil {
			return err
		}
		cfg = fileCfg
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *upstream != "" {
		cfg.WithUpstreamURL(*upstream)
	}
	if *logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	if len(extra) > 0 {
		if cfg.ExtraHeaders == nil {
			cfg.ExtraHeaders = dto.ExtraHeaders{}
		}
		for k, v := range extra {
			cfg.ExtraHeaders[k] = v
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LevelVar()}))
	slog.SetDefault(logger)
	relay := relays.ProvideRelay(relays.NewSlogSink(logger))
	if err := relay.Hydrate(); err != nil {
		return err
	}
	cfg.WithRelay(relay)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := auroraproxy.ProvideProxySvc(&cfg)
	if err := svc.Hydrate(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.New(svc, relay).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Open streams end with the process context so Shutdown can finish.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("aurora-proxy listening", "addr", cfg.ListenAddr, "upstream", cfg.UpstreamURL)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
