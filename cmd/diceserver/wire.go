//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/diceengine/internal/config"
	"github.com/cory-johannsen/diceengine/internal/frontend/handlers"
	"github.com/cory-johannsen/diceengine/internal/frontend/telnet"
	"github.com/cory-johannsen/diceengine/internal/observability"
	"github.com/cory-johannsen/diceengine/internal/server"
)

func initializeApp(ctx context.Context, cfg config.Config, logger *zap.Logger, tel *observability.Telemetry) (*server.Lifecycle, func(), error) {
	wire.Build(
		wire.FieldsOf(new(config.Config), "Server", "Dice", "Database", "Telnet", "GRPC", "History", "Telemetry"),
		provideDatabase,
		provideHistoryStore,
		providePresets,
		provideRoller,
		provideService,
		provideTelnetHandler,
		wire.Bind(new(telnet.SessionHandler), new(*handlers.DiceHandler)),
		telnet.NewAcceptor,
		provideGRPCServer,
		provideLifecycle,
	)
	return nil, nil, nil
}
