package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cory-johannsen/diceengine/internal/config"
	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/diceserver"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/observability"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRoll_Local(t *testing.T) {
	code, out, _ := runCLI(t, "roll", "2d1+3")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Input: 2d1+3")
	assert.Contains(t, out, "Dice: [1, 1]")
	assert.Contains(t, out, "(1 + 1) + 3 = 5")
	assert.NotContains(t, out, "\x1b[")
}

func TestRoll_ColorFlagKeepsANSI(t *testing.T) {
	code, out, _ := runCLI(t, "-color", "roll", "1d1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "\x1b[")
}

func TestChance_Local(t *testing.T) {
	code, out, _ := runCLI(t, "chance", "2d6", "7")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Target: 2d6 >= 7")
	assert.Contains(t, out, "Chance: 58.33% (exact)")

	code, out, _ = runCLI(t, "chance", "-cmp", "<", "1d20", "11")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Chance: 50.00% (exact)")
}

func TestHP_Local(t *testing.T) {
	code, out, _ := runCLI(t, "hp", "{n}d1+1", "n=4")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "HP: 5")
}

func TestErrors(t *testing.T) {
	code, _, errOut := runCLI(t, "roll", "5/0")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, errOut)
	assert.NotContains(t, errOut, "usage:")

	code, _, errOut = runCLI(t, "juggle")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "juggle"`)

	code, _, errOut = runCLI(t, "history")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "requires -addr")

	code, _, _ = runCLI(t)
	assert.Equal(t, 2, code)

	code, _, errOut = runCLI(t, "chance", "2d6")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "expression and a target")
}

func TestRemote(t *testing.T) {
	cfg, err := config.LoadDefaults()
	require.NoError(t, err)
	cfg.Dice.PresetsDir = ""
	svc, err := localService(cfg, zap.NewNop())
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := diceserver.NewTransport(diceserver.NewGRPCServer(svc, zap.NewNop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	addr := lis.Addr().String()
	code, out, _ := runCLI(t, "-addr", addr, "roll", "3d1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "(1 + 1 + 1) = 3")

	code, _, errOut := runCLI(t, "-addr", addr, "roll", "(1+2")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Parentheses do not match")
	assert.NotContains(t, errOut, "rpc error")

	code, out, _ = runCLI(t, "-addr", addr, "history", "-actor", "nobody")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No history yet.")
}

func TestRemoteHistory_UsesServerDefaultLimit(t *testing.T) {
	roller := dice.NewLoggedRoller(dice.NewEngine(dice.DefaultLimits(), dice.NewCryptoSource()), zap.NewNop())
	svc := diceserver.NewService(roller, history.NewMemoryStore(20), nil, observability.NoopRecorder{},
		noop.NewTracerProvider().Tracer(""), zap.NewNop(),
		diceserver.Options{DefaultSamples: dice.MinSamples, DefaultHistoryLimit: 3})
	for i := 0; i < 6; i++ {
		_, err := svc.Roll(context.Background(), diceserver.RollRequest{Actor: "grace", Expr: "2d1"})
		require.NoError(t, err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := diceserver.NewTransport(diceserver.NewGRPCServer(svc, zap.NewNop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	addr := lis.Addr().String()

	code, out, _ := runCLI(t, "-addr", addr, "history", "-actor", "grace")
	require.Equal(t, 0, code)
	assert.Equal(t, 3, strings.Count(out, "2d1 →"))

	code, out, _ = runCLI(t, "-addr", addr, "history", "-actor", "grace", "5")
	require.Equal(t, 0, code)
	assert.Equal(t, 5, strings.Count(out, "2d1 →"))
}
