package diceserver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
	"github.com/cory-johannsen/diceengine/internal/observability"
)

// fixedSource rolls the same face on every die, capped at the die size.
type fixedSource struct{ face int }

func (f fixedSource) Intn(n int) int { return min(f.face, n) - 1 }

// spyRecorder counts Recorder calls.
type spyRecorder struct {
	mu       sync.Mutex
	rolls    int
	drawn    int
	analyses map[string]int
	errors   map[string]int
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{analyses: map[string]int{}, errors: map[string]int{}}
}

func (s *spyRecorder) RecordRoll(_ context.Context, _ string, diceDrawn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolls++
	s.drawn += diceDrawn
}

func (s *spyRecorder) RecordAnalysis(_ context.Context, _, method string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[method]++
}

func (s *spyRecorder) RecordError(_ context.Context, _, operation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[operation]++
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) Append(context.Context, history.Entry) (history.Entry, error) {
	return history.Entry{}, errors.New("disk full")
}

func (failingStore) Recent(context.Context, string, int) ([]history.Entry, error) {
	return nil, errors.New("disk full")
}

type fixture struct {
	svc      *Service
	store    history.Store
	recorder *spyRecorder
	spans    *tracetest.InMemoryExporter
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, store history.Store, face int) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	presets, err := hpformula.NewCatalog([]*hpformula.Preset{{
		ID:      "goblin",
		Name:    "Goblin",
		Formula: hpformula.Formula{Expr: "{level}d6+2", Params: map[string]float64{"level": 1}},
	}})
	require.NoError(t, err)

	rec := newSpyRecorder()
	roller := dice.NewLoggedRoller(dice.NewEngine(dice.DefaultLimits(), fixedSource{face: face}), logger)
	svc := NewService(roller, store, presets, rec, tp.Tracer(observability.TracerName), logger, Options{
		DefaultSamples:      dice.MinSamples,
		DefaultHistoryLimit: 5,
	})
	return &fixture{svc: svc, store: store, recorder: rec, spans: exporter, logs: logs}
}

func TestService_Roll(t *testing.T) {
	f := newFixture(t, history.NewMemoryStore(10), 4)
	ctx := context.Background()

	res, err := f.svc.Roll(ctx, RollRequest{Actor: "alice", Frontend: FrontendTelnet, Expr: "2d6+3"})
	require.NoError(t, err)
	assert.Equal(t, "(4 + 4) + 3", res.Expanded)
	assert.Equal(t, 11.0, res.Total)

	assert.Equal(t, 1, f.recorder.rolls)
	assert.Equal(t, 2, f.recorder.drawn)

	entries, err := f.svc.History(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.KindRoll, entries[0].Kind)
	assert.Equal(t, "2d6+3 → (4 + 4) + 3 = 11", entries[0].Summary)

	spans := f.spans.GetSpans()
	require.NotEmpty(t, spans)
	assert.Equal(t, "dice.roll", spans[0].Name)
}

func TestService_Roll_NoActorSkipsHistory(t *testing.T) {
	store := history.NewMemoryStore(10)
	f := newFixture(t, store, 3)
	_, err := f.svc.Roll(context.Background(), RollRequest{Expr: "1d6"})
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestService_Roll_UserError(t *testing.T) {
	f := newFixture(t, history.NewMemoryStore(10), 4)
	_, err := f.svc.Roll(context.Background(), RollRequest{Actor: "alice", Expr: "5/0"})
	var exprErr *dice.ExpressionError
	require.ErrorAs(t, err, &exprErr)
	assert.Equal(t, 1, f.recorder.errors["roll"])
	assert.Equal(t, 0, f.recorder.rolls)

	spans := f.spans.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "Error", spans[0].Status.Code.String())
}

func TestService_Analyze(t *testing.T) {
	f := newFixture(t, history.NewMemoryStore(10), 1)
	ctx := context.Background()

	res, err := f.svc.Analyze(ctx, AnalyzeRequest{Actor: "bob", Expr: "2d6", Target: 7, Comparator: dice.CmpGE})
	require.NoError(t, err)
	assert.Equal(t, dice.MethodExact, res.Method)
	assert.Equal(t, "58.33%", res.ProbabilityPercent)
	assert.Equal(t, 1, f.recorder.analyses[string(dice.MethodExact)])

	entries, err := f.svc.History(ctx, "bob", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2d6 >= 7: 58.33% (exact)", entries[0].Summary)
}

func TestService_Analyze_DefaultSamples(t *testing.T) {
	f := newFixture(t, nil, 1)
	res, err := f.svc.Analyze(context.Background(), AnalyzeRequest{Expr: "300d1000", Target: 1})
	require.NoError(t, err)
	assert.Equal(t, dice.MethodMonteCarlo, res.Method)
	assert.Equal(t, dice.MinSamples, res.Samples)
}

func TestService_Analyze_InvalidComparator(t *testing.T) {
	f := newFixture(t, nil, 1)
	_, err := f.svc.Analyze(context.Background(), AnalyzeRequest{Expr: "1d6", Target: 3, Comparator: "=>"})
	require.Error(t, err)
	assert.Equal(t, 1, f.recorder.errors["analyze"])
}

func TestService_ResolveHP_Preset(t *testing.T) {
	f := newFixture(t, history.NewMemoryStore(10), 5)
	ctx := context.Background()

	res, err := f.svc.ResolveHP(ctx, HPRequest{Actor: "gm", Subject: "goblin", Params: map[string]float64{"level": 2}})
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Equal(t, "goblin", res.Preset)
	assert.Equal(t, "2d6+2", res.Expression)
	assert.Equal(t, 12, res.HP)

	entries, err := f.svc.History(ctx, "gm", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Summary, "(HP 12)")
}

func TestService_ResolveHP_AdHocFormula(t *testing.T) {
	f := newFixture(t, nil, 2)
	res, err := f.svc.ResolveHP(context.Background(), HPRequest{Subject: "{n}d4", Params: map[string]float64{"n": 3}})
	require.NoError(t, err)
	assert.Empty(t, res.Preset)
	assert.Equal(t, 6, res.HP)

	empty, err := f.svc.ResolveHP(context.Background(), HPRequest{Subject: "  "})
	require.NoError(t, err)
	assert.False(t, empty.Resolved)

	_, err = f.svc.ResolveHP(context.Background(), HPRequest{Subject: "{missing}d4"})
	assert.ErrorIs(t, err, hpformula.ErrMissingParam)
	assert.Equal(t, 1, f.recorder.errors["hp"])
}

func TestService_HistoryFailureIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t, failingStore{}, 3)
	_, err := f.svc.Roll(context.Background(), RollRequest{Actor: "alice", Expr: "1d6"})
	require.NoError(t, err)

	warnings := f.logs.FilterMessage("appending roll history").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)

	_, err = f.svc.History(context.Background(), "alice", 3)
	assert.Error(t, err)
}

func TestService_HistoryDisabled(t *testing.T) {
	f := newFixture(t, nil, 3)
	entries, err := f.svc.History(context.Background(), "alice", 3)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, []string{"goblin"}, f.svc.PresetIDs())
}
