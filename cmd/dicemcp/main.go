// Package main provides the dice MCP server. It serves the dice tools over
// stdio; logs go to stderr so stdout carries only protocol messages.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/diceengine/internal/config"
	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/diceserver"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
	"github.com/cory-johannsen/diceengine/internal/mcptools"
	"github.com/cory-johannsen/diceengine/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (defaults plus DICE_ environment when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	// stdout belongs to the protocol.
	cfg.Logging.Output = "stderr"

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}

	code := run(cfg, logger, start)
	_ = logger.Sync()
	os.Exit(code)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.LoadDefaults()
	}
	return config.Load(path)
}

func run(cfg config.Config, logger *zap.Logger, start time.Time) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := observability.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Error("initializing telemetry", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	var presets *hpformula.Catalog
	if cfg.Dice.PresetsDir != "" {
		loaded, err := hpformula.LoadPresets(cfg.Dice.PresetsDir)
		if err != nil {
			logger.Warn("hp presets unavailable", zap.String("dir", cfg.Dice.PresetsDir), zap.Error(err))
		} else if presets, err = hpformula.NewCatalog(loaded); err != nil {
			logger.Error("building hp preset catalog", zap.Error(err))
			return 1
		}
	}

	roller := dice.NewLoggedRoller(dice.NewEngine(cfg.Dice.Limits(), cfg.Dice.Source()), logger)
	svc := diceserver.NewService(roller, history.NewMemoryStore(max(cfg.History.Capacity, 1)), presets,
		tel.Recorder(), tel.Tracer(), logger, diceserver.Options{
			DefaultSamples:      cfg.Dice.DefaultSamples,
			DefaultHistoryLimit: cfg.History.DefaultLimit,
		})

	server := mcptools.NewServer(cfg.MCP, svc)
	logger.Info("dice mcp server initialized",
		zap.String("name", cfg.MCP.Name),
		zap.String("version", cfg.MCP.Version),
		zap.Duration("startup", time.Since(start)),
	)
	if err := mcptools.Serve(ctx, server, &mcp.StdioTransport{}, logger); err != nil {
		logger.Error("mcp server failed", zap.Error(err))
		return 1
	}
	return 0
}
