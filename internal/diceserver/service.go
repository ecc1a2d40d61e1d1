// Package diceserver composes the dice engine with history, metrics and
// tracing, and exposes it to the Telnet, gRPC and MCP frontends.
package diceserver

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
	"github.com/cory-johannsen/diceengine/internal/observability"
)

// Frontend names used as the metric "frontend" attribute.
const (
	FrontendTelnet = "telnet"
	FrontendGRPC   = "grpc"
	FrontendMCP    = "mcp"
	FrontendCLI    = "cli"
)

// RollRequest asks for one roll of Expr.
type RollRequest struct {
	// Actor identifies the caller in history. Empty skips the audit entry.
	Actor    string
	Frontend string
	Expr     string
	Sort     bool
}

// AnalyzeRequest asks for the probability that Expr Comparator Target holds.
type AnalyzeRequest struct {
	Actor      string
	Frontend   string
	Expr       string
	Target     float64
	Comparator dice.Comparator
	// Samples <= 0 selects Options.DefaultSamples.
	Samples int
}

// HPRequest asks for a hit-point roll. Subject names a preset or is itself
// a formula; Params override the preset's parameters.
type HPRequest struct {
	Actor    string
	Frontend string
	Subject  string
	Params   map[string]float64
}

// HPResult is a resolved hit-point roll.
type HPResult struct {
	// Preset is the preset ID used, empty for an ad-hoc formula.
	Preset string
	// Resolved is false when the formula was empty.
	Resolved bool
	hpformula.Result
}

// Options tunes a Service.
type Options struct {
	// DefaultSamples is the Monte Carlo sample count used when a request names none.
	DefaultSamples int
	// DefaultHistoryLimit is used when History is called with a non-positive limit.
	DefaultHistoryLimit int
}

// Service runs rolls and analyses on behalf of every frontend.
//
// Service is safe for concurrent use.
type Service struct {
	roller   *dice.Roller
	store    history.Store
	presets  *hpformula.Catalog
	recorder observability.Recorder
	tracer   trace.Tracer
	logger   *zap.Logger
	opts     Options
}

// NewService creates a Service.
//
// Precondition: roller, recorder, tracer and logger must be non-nil.
// store and presets may be nil (history and presets disabled).
// Postcondition: Returns a ready Service.
func NewService(
	roller *dice.Roller,
	store history.Store,
	presets *hpformula.Catalog,
	recorder observability.Recorder,
	tracer trace.Tracer,
	logger *zap.Logger,
	opts Options,
) *Service {
	if opts.DefaultHistoryLimit <= 0 {
		opts.DefaultHistoryLimit = 10
	}
	return &Service{
		roller:   roller,
		store:    store,
		presets:  presets,
		recorder: recorder,
		tracer:   tracer,
		logger:   logger,
		opts:     opts,
	}
}

// Roll evaluates req.Expr with fresh dice.
//
// Postcondition: On success the roll is counted and, when req.Actor is set,
// appended to history. Engine failures are returned as *dice.ExpressionError.
func (s *Service) Roll(ctx context.Context, req RollRequest) (_ dice.RollResult, err error) {
	ctx, span := observability.StartSpan(ctx, s.tracer, "dice.roll",
		attribute.String("dice.expression", req.Expr),
		attribute.String("dice.frontend", req.Frontend),
	)
	defer func() { observability.EndSpan(span, err) }()

	res, err := s.roller.Roll(req.Expr, dice.RollOptions{SortDescending: req.Sort})
	if err != nil {
		s.recorder.RecordError(ctx, req.Frontend, "roll")
		return dice.RollResult{}, err
	}
	span.SetAttributes(
		attribute.Int("dice.count", len(res.Dice)),
		attribute.Float64("dice.total", res.Total),
	)
	s.recorder.RecordRoll(ctx, req.Frontend, len(res.Dice))
	s.audit(ctx, req.Actor, func() history.Entry { return history.RollEntry(req.Actor, res) })
	return res, nil
}

// Analyze computes the probability that req.Expr compared with req.Target holds.
//
// Postcondition: On success the analysis and its latency are recorded and,
// when req.Actor is set, appended to history.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (_ dice.TargetAnalysis, err error) {
	ctx, span := observability.StartSpan(ctx, s.tracer, "dice.analyze",
		attribute.String("dice.expression", req.Expr),
		attribute.String("dice.comparator", string(req.Comparator)),
		attribute.Float64("dice.target", req.Target),
		attribute.String("dice.frontend", req.Frontend),
	)
	defer func() { observability.EndSpan(span, err) }()

	samples := req.Samples
	if samples <= 0 {
		samples = s.opts.DefaultSamples
	}

	start := time.Now()
	res, err := s.roller.Analyze(req.Expr, req.Target, dice.AnalyzeOptions{
		Comparator: req.Comparator,
		Samples:    samples,
	})
	if err != nil {
		s.recorder.RecordError(ctx, req.Frontend, "analyze")
		return dice.TargetAnalysis{}, err
	}
	span.SetAttributes(
		attribute.String("dice.method", string(res.Method)),
		attribute.Float64("dice.probability", res.Probability),
	)
	s.recorder.RecordAnalysis(ctx, req.Frontend, string(res.Method), time.Since(start))
	s.audit(ctx, req.Actor, func() history.Entry { return history.AnalysisEntry(req.Actor, res) })
	return res, nil
}

// ResolveHP rolls hit points for a preset or an ad-hoc formula.
//
// Postcondition: Returns HPResult with Resolved=false for an empty formula,
// or an error from hpformula or the engine.
func (s *Service) ResolveHP(ctx context.Context, req HPRequest) (_ HPResult, err error) {
	ctx, span := observability.StartSpan(ctx, s.tracer, "dice.hp",
		attribute.String("dice.subject", req.Subject),
		attribute.String("dice.frontend", req.Frontend),
	)
	defer func() { observability.EndSpan(span, err) }()

	formula := hpformula.Formula{Expr: req.Subject, Params: req.Params}
	var presetID string
	if p, ok := s.Preset(strings.TrimSpace(req.Subject)); ok {
		presetID = p.ID
		formula = p.Formula
		formula.Params = maps.Clone(p.Formula.Params)
		if formula.Params == nil {
			formula.Params = map[string]float64{}
		}
		maps.Copy(formula.Params, req.Params)
	}

	res, ok, err := hpformula.Resolve(s.roller, formula)
	if err != nil {
		s.recorder.RecordError(ctx, req.Frontend, "hp")
		return HPResult{}, err
	}
	out := HPResult{Preset: presetID, Resolved: ok, Result: res}
	if !ok {
		return out, nil
	}

	span.SetAttributes(attribute.Int("dice.hp", res.HP))
	s.recorder.RecordRoll(ctx, req.Frontend, len(res.Roll.Dice))
	s.audit(ctx, req.Actor, func() history.Entry {
		e := history.RollEntry(req.Actor, res.Roll)
		e.Summary = fmt.Sprintf("%s (HP %d)", e.Summary, res.HP)
		return e
	})
	return out, nil
}

// Preset looks up a hit-point preset by ID.
func (s *Service) Preset(id string) (*hpformula.Preset, bool) {
	if s.presets == nil {
		return nil, false
	}
	return s.presets.Get(id)
}

// PresetIDs lists the available hit-point presets in sorted order.
func (s *Service) PresetIDs() []string {
	if s.presets == nil {
		return nil
	}
	return s.presets.IDs()
}

// History returns up to limit of actor's most recent entries, newest first.
// A non-positive limit selects Options.DefaultHistoryLimit.
//
// Postcondition: Returns an empty slice when history is disabled.
func (s *Service) History(ctx context.Context, actor string, limit int) (_ []history.Entry, err error) {
	ctx, span := observability.StartSpan(ctx, s.tracer, "dice.history",
		attribute.String("dice.actor", actor),
	)
	defer func() { observability.EndSpan(span, err) }()

	if s.store == nil {
		return []history.Entry{}, nil
	}
	if limit <= 0 {
		limit = s.opts.DefaultHistoryLimit
	}
	entries, err := s.store.Recent(ctx, actor, limit)
	if err != nil {
		return nil, fmt.Errorf("loading history for %q: %w", actor, err)
	}
	return entries, nil
}

// audit appends the entry built by build. History failures are logged and
// never surfaced to the caller.
func (s *Service) audit(ctx context.Context, actor string, build func() history.Entry) {
	if s.store == nil || actor == "" {
		return
	}
	if _, err := s.store.Append(ctx, build()); err != nil {
		s.logger.Warn("appending roll history",
			zap.String("actor", actor),
			zap.Error(err),
		)
	}
}
