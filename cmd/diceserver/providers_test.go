package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/diceengine/internal/config"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/observability"
	"github.com/cory-johannsen/diceengine/internal/testutil"
)

func TestProvideHistoryStore_Memory(t *testing.T) {
	store, cleanup, err := provideHistoryStore(
		config.HistoryConfig{Driver: "memory", Capacity: 5}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &history.MemoryStore{}, store)
}

func TestProvideHistoryStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, cleanup, err := provideHistoryStore(
		config.HistoryConfig{Driver: "sqlite", SQLitePath: path}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()

	e, err := history.Prepare(history.Entry{Actor: "alice", Kind: history.KindRoll, Expression: "1d6", Summary: "1d6 → 4 = 4", Total: 4}, time.Now())
	require.NoError(t, err)
	_, err = store.Append(context.Background(), e)
	require.NoError(t, err)

	got, err := store.Recent(context.Background(), "alice", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestProvideHistoryStore_UnknownDriver(t *testing.T) {
	_, _, err := provideHistoryStore(
		config.HistoryConfig{Driver: "redis"}, nil, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, `unknown history driver "redis"`)

	_, _, err = provideHistoryStore(config.HistoryConfig{Driver: "postgres"}, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestProvideDatabase_SkippedForOtherDrivers(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		pool, cleanup, err := provideDatabase(context.Background(),
			config.HistoryConfig{Driver: driver}, config.DatabaseConfig{}, zaptest.NewLogger(t))
		require.NoError(t, err)
		cleanup()
		assert.Nil(t, pool, "driver %q", driver)
	}
}

func TestInitializeApp_PostgresHealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in -short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	ctx := context.Background()

	cfg, err := config.LoadDefaults()
	require.NoError(t, err)
	cfg.Server.Mode = "grpc"
	cfg.Dice.PresetsDir = ""
	cfg.History.Driver = "postgres"
	cfg.Database = pc.Config

	logger := zaptest.NewLogger(t)
	tel, err := observability.Setup(ctx, cfg.Telemetry, logger)
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(ctx) }()

	lc, cleanup, err := initializeApp(ctx, cfg, logger, tel)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, []string{"grpc", "postgres"}, lc.Names())

	pool, closePool, err := provideDatabase(ctx, cfg.History, cfg.Database, logger)
	require.NoError(t, err)
	check := databaseHealth(pool)
	assert.NoError(t, check(ctx))
	closePool()
	assert.ErrorContains(t, check(ctx), "database health check")
}

func TestProvidePresets(t *testing.T) {
	catalog, err := providePresets(config.DiceConfig{PresetsDir: "../../configs/hp"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"goblin", "ogre", "wisp"}, catalog.IDs())

	none, err := providePresets(config.DiceConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = providePresets(config.DiceConfig{PresetsDir: filepath.Join(t.TempDir(), "missing")}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestInitializeApp_ServicesFollowMode(t *testing.T) {
	cases := []struct {
		mode    string
		metrics bool
		want    []string
	}{
		{mode: "all", want: []string{"telnet", "grpc"}},
		{mode: "telnet", want: []string{"telnet"}},
		{mode: "grpc", metrics: true, want: []string{"grpc", "metrics"}},
	}
	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			cfg, err := config.LoadDefaults()
			require.NoError(t, err)
			cfg.Server.Mode = tc.mode
			cfg.Dice.PresetsDir = "../../configs/hp"
			cfg.Telemetry.Metrics = tc.metrics

			logger := zaptest.NewLogger(t)
			tel, err := observability.Setup(context.Background(), cfg.Telemetry, logger)
			require.NoError(t, err)
			defer func() { _ = tel.Shutdown(context.Background()) }()

			lc, cleanup, err := initializeApp(context.Background(), cfg, logger, tel)
			require.NoError(t, err)
			defer cleanup()
			assert.Equal(t, tc.want, lc.Names())
		})
	}
}
