package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jackpotchain/cmd/internal/passphrase"
	"jackpotchain/config"
	"jackpotchain/core"
	"jackpotchain/core/events"
	"jackpotchain/observability/logging"
	telemetry "jackpotchain/observability/otel"
	"jackpotchain/rpc"
	"jackpotchain/storage"
)

const ownerPassEnv = "JACKPOT_OWNER_PASS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "jackpotd: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	passSource := passphrase.NewSource(ownerPassEnv, "owner keystore").WithConfirmation()
	cfg, err := config.Load(configFile, config.WithKeystorePassphraseSource(passSource.Get))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("jackpotd", cfg.Node.Environment, logging.Options{
		File:  cfg.Node.LogFile,
		Level: logging.ParseLevel(cfg.Node.LogLevel),
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), cfg.TelemetryConfig("jackpotd"))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	nodeCfg, err := cfg.NodeConfig(logger)
	if err != nil {
		return fmt.Errorf("node config: %w", err)
	}
	db, err := storage.NewLevelDB(cfg.Node.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	node, err := core.NewNode(db, nodeCfg)
	if err != nil {
		db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Error("close node", slog.Any("error", err))
		}
	}()
	node.SetEventSink(events.EmitterFunc(func(evt events.Event) {
		attrs := []any{"type", evt.EventType()}
		if payload, ok := evt.(events.Payload); ok && payload.Event() != nil {
			for key, value := range payload.Event().Attributes {
				attrs = append(attrs, key, value)
			}
		}
		logger.Debug("event", attrs...)
	}))

	if cfg.API.JWTSecret == "" {
		logger.Warn("admin API disabled: no JWT secret configured", "env", config.EnvAPISecret)
	}
	server := rpc.NewServer(node, rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.API.JWTSecret,
			Issuer:     cfg.API.JWTIssuer,
			Audience:   cfg.API.JWTAudience,
		},
		RateLimit:         rpc.RateLimit{PerSecond: cfg.API.RateLimitPerSecond, Burst: cfg.API.RateLimitBurst},
		TrustProxyHeaders: cfg.API.TrustProxyHeaders,
		Logger:            logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Node.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Node.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Node.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("jackpotd listening", slog.String("addr", cfg.Node.ListenAddress), slog.String("chain_id", cfg.Node.ChainID))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
