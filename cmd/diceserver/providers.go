package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/diceengine/internal/command"
	"github.com/cory-johannsen/diceengine/internal/config"
	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/diceserver"
	"github.com/cory-johannsen/diceengine/internal/frontend/handlers"
	"github.com/cory-johannsen/diceengine/internal/frontend/telnet"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
	"github.com/cory-johannsen/diceengine/internal/observability"
	"github.com/cory-johannsen/diceengine/internal/server"
	"github.com/cory-johannsen/diceengine/internal/storage/postgres"
	"github.com/cory-johannsen/diceengine/internal/storage/sqlite"
)

// dbHealthInterval is how often the postgres history pool is pinged.
const dbHealthInterval = 30 * time.Second

// provideDatabase connects the PostgreSQL pool when the history driver is
// postgres.
//
// Postcondition: Returns a nil pool for every other driver; otherwise a
// connected pool and a cleanup that closes it, or an error.
func provideDatabase(ctx context.Context, cfg config.HistoryConfig, db config.DatabaseConfig, logger *zap.Logger) (*postgres.Pool, func(), error) {
	if cfg.Driver != "postgres" {
		return nil, func() {}, nil
	}
	start := time.Now()
	pool, err := postgres.NewPool(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", db.Host),
		zap.String("database", db.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return pool, pool.Close, nil
}

// provideHistoryStore opens the roll history backend selected by cfg.Driver.
//
// Precondition: pool is non-nil when cfg.Driver is postgres.
// Postcondition: Returns a Store and a cleanup that releases it, or an error.
func provideHistoryStore(cfg config.HistoryConfig, pool *postgres.Pool, logger *zap.Logger) (history.Store, func(), error) {
	start := time.Now()
	switch cfg.Driver {
	case "postgres":
		if pool == nil {
			return nil, nil, fmt.Errorf("postgres history needs a database pool")
		}
		logger.Info("history store ready", zap.String("driver", cfg.Driver))
		return postgres.NewHistoryRepository(pool.DB()), func() {}, nil

	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite history: %w", err)
		}
		logger.Info("history store ready",
			zap.String("driver", cfg.Driver),
			zap.String("path", cfg.SQLitePath),
			zap.Duration("elapsed", time.Since(start)),
		)
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sqlite history", zap.Error(err))
			}
		}
		return store, cleanup, nil

	case "memory", "":
		logger.Info("history store ready",
			zap.String("driver", "memory"),
			zap.Int("capacity", cfg.Capacity),
		)
		return history.NewMemoryStore(cfg.Capacity), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
}

// providePresets loads the hit-point presets from cfg.PresetsDir.
//
// Postcondition: Returns nil when PresetsDir is empty.
func providePresets(cfg config.DiceConfig, logger *zap.Logger) (*hpformula.Catalog, error) {
	if cfg.PresetsDir == "" {
		return nil, nil
	}
	presets, err := hpformula.LoadPresets(cfg.PresetsDir)
	if err != nil {
		return nil, fmt.Errorf("loading hp presets: %w", err)
	}
	catalog, err := hpformula.NewCatalog(presets)
	if err != nil {
		return nil, err
	}
	logger.Info("hp presets loaded",
		zap.String("dir", cfg.PresetsDir),
		zap.Int("count", len(presets)),
	)
	return catalog, nil
}

func provideRoller(cfg config.DiceConfig, logger *zap.Logger) *dice.Roller {
	return dice.NewLoggedRoller(dice.NewEngine(cfg.Limits(), cfg.Source()), logger)
}

func provideService(
	roller *dice.Roller,
	store history.Store,
	presets *hpformula.Catalog,
	tel *observability.Telemetry,
	diceCfg config.DiceConfig,
	histCfg config.HistoryConfig,
	logger *zap.Logger,
) *diceserver.Service {
	return diceserver.NewService(roller, store, presets, tel.Recorder(), tel.Tracer(), logger, diceserver.Options{
		DefaultSamples:      diceCfg.DefaultSamples,
		DefaultHistoryLimit: histCfg.DefaultLimit,
	})
}

func provideTelnetHandler(svc *diceserver.Service, logger *zap.Logger) *handlers.DiceHandler {
	return handlers.NewDiceHandler(svc, command.DefaultRegistry(), logger)
}

func provideGRPCServer(svc *diceserver.Service, logger *zap.Logger) *grpc.Server {
	return diceserver.NewTransport(diceserver.NewGRPCServer(svc, logger))
}

// databaseHealth pings pool within a 5s budget.
func databaseHealth(pool *postgres.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Health(ctx, 5*time.Second); err != nil {
			return fmt.Errorf("database health check: %w", err)
		}
		return nil
	}
}

// provideLifecycle registers the frontends selected by srv.Mode and, when
// enabled, the periodic metrics report and the database health check.
func provideLifecycle(
	srv config.ServerConfig,
	grpcCfg config.GRPCConfig,
	telCfg config.TelemetryConfig,
	acceptor *telnet.Acceptor,
	grpcServer *grpc.Server,
	pool *postgres.Pool,
	tel *observability.Telemetry,
	logger *zap.Logger,
) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	if srv.ServesTelnet() {
		lc.Add("telnet", &server.FuncService{
			StartFn: acceptor.ListenAndServe,
			StopFn:  acceptor.Stop,
		})
	}
	if srv.ServesGRPC() {
		lc.Add("grpc", &server.FuncService{
			StartFn: func() error {
				lis, err := net.Listen("tcp", grpcCfg.Addr())
				if err != nil {
					return fmt.Errorf("listening on %s: %w", grpcCfg.Addr(), err)
				}
				logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
				return grpcServer.Serve(lis)
			},
			StopFn: grpcServer.GracefulStop,
		})
	}
	if pool != nil {
		lc.Add("postgres", &server.PeriodicService{
			Interval: dbHealthInterval,
			Task:     databaseHealth(pool),
			Logger:   logger,
		})
	}
	if tel.MetricsEnabled() {
		lc.Add("metrics", &server.PeriodicService{
			Interval: telCfg.MetricsInterval,
			Task:     tel.ReportMetrics,
			Logger:   logger,
		})
	}
	return lc
}
