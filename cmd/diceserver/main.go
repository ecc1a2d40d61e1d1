// Package main provides the dice server binary. It serves the dice commands
// over Telnet and the dice.v1.DiceService over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/diceengine/internal/config"
	"github.com/cory-johannsen/diceengine/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}

	code := run(cfg, logger, start)
	_ = logger.Sync()
	os.Exit(code)
}

func run(cfg config.Config, logger *zap.Logger, start time.Time) int {
	ctx := context.Background()

	tel, err := observability.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Error("initializing telemetry", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down telemetry", zap.Error(err))
		}
	}()

	lifecycle, cleanup, err := initializeApp(ctx, cfg, logger, tel)
	if err != nil {
		logger.Error("initializing dice server", zap.Error(err))
		return 1
	}
	defer cleanup()

	logger.Info("dice server initialized",
		zap.String("mode", cfg.Server.Mode),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.String("history_driver", cfg.History.Driver),
		zap.Strings("services", lifecycle.Names()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("dice server stopped with error", zap.Error(err))
		return 1
	}
	return 0
}
