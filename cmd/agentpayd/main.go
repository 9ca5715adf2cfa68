package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agentpay/config"
	"agentpay/core"
	"agentpay/observability/logging"
	telemetry "agentpay/observability/otel"
	"agentpay/rpc"
	"agentpay/storage"
)

const serviceName = "agentpayd"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON file (overrides config GenesisFile)")
	flag.Parse()

	if err := run(*configFile, *genesisFlag); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(configFile, genesisOverride string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if trimmed := strings.TrimSpace(genesisOverride); trimmed != "" {
		cfg.GenesisFile = trimmed
	}

	env := cfg.Env
	if fromEnv := strings.TrimSpace(os.Getenv("AGENTPAY_ENV")); fromEnv != "" {
		env = fromEnv
	}
	logger, logCloser := logging.SetupWithOptions(logging.Options{
		Service: serviceName,
		Env:     env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	spec, err := cfg.GenesisSpec()
	if err != nil {
		return fmt.Errorf("resolve genesis: %w", err)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := core.NewNode(db, spec)
	if err != nil {
		return fmt.Errorf("start ledger: %w", err)
	}
	defer node.Close()
	node.SetLogger(logger)

	srv := rpc.NewServer(node, rpc.ServerConfig{
		ServiceName:       serviceName,
		MaxBodyBytes:      cfg.RPC.MaxBodyBytes,
		RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
		Burst:             cfg.RateLimit.Burst,
		TrustedProxies:    cfg.RPC.TrustedProxies,
	}, logger)

	server := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.RPC.ReadHeaderTimeoutDuration(),
		ReadTimeout:       cfg.RPC.ReadTimeoutDuration(),
		WriteTimeout:      cfg.RPC.WriteTimeoutDuration(),
		IdleTimeout:       cfg.RPC.IdleTimeoutDuration(),
	}

	listener, err := net.Listen("tcp", cfg.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("agentpay ledger listening",
			slog.String("addr", listener.Addr().String()),
			slog.Uint64("height", node.Height()),
			slog.String("root", node.StateRoot().Hex()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("agentpay ledger stopped", slog.Uint64("height", node.Height()))
	return nil
}
