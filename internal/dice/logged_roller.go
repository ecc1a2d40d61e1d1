package dice

import (
	"errors"

	"go.uber.org/zap"
)

// Roller wraps an Engine and logger to provide logged dice rolling.
// Every roll and analysis is logged at debug level; rejected expressions are
// logged with their internal cause.
type Roller struct {
	engine *Engine
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that evaluates with engine and logs to logger.
//
// Precondition: engine and logger must be non-nil.
func NewLoggedRoller(engine *Engine, logger *zap.Logger) *Roller {
	return &Roller{engine: engine, logger: logger}
}

// Engine returns the wrapped engine.
func (r *Roller) Engine() *Engine { return r.engine }

// Roll evaluates expr and logs the result at debug level.
//
// Postcondition: result logged; returns RollResult or an *ExpressionError.
func (r *Roller) Roll(expr string, opts RollOptions) (RollResult, error) {
	result, err := r.engine.Roll(expr, opts)
	if err != nil {
		r.logRejected("dice roll rejected", expr, err)
		return RollResult{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Input),
		zap.String("expanded", result.Expanded),
		zap.Ints("dice", result.Dice),
		zap.Float64("total", result.Total),
	)
	return result, nil
}

// Analyze runs AnalyzeTarget and logs the outcome at debug level.
//
// Postcondition: result logged; returns TargetAnalysis or an *ExpressionError.
func (r *Roller) Analyze(expr string, target float64, opts AnalyzeOptions) (TargetAnalysis, error) {
	result, err := r.engine.AnalyzeTarget(expr, target, opts)
	if err != nil {
		r.logRejected("dice analysis rejected", expr, err)
		return TargetAnalysis{}, err
	}
	fields := []zap.Field{
		zap.String("expression", result.Input),
		zap.String("comparator", string(result.Comparator)),
		zap.Float64("target", result.Target),
		zap.String("method", string(result.Method)),
		zap.String("probability", result.ProbabilityPercent),
		zap.Int("terms", len(result.Terms)),
	}
	if result.Method == MethodMonteCarlo {
		fields = append(fields, zap.Int("samples", result.Samples))
	}
	r.logger.Debug("dice analysis", fields...)
	return result, nil
}

func (r *Roller) logRejected(msg, expr string, err error) {
	cause := err.Error()
	var exprErr *ExpressionError
	if errors.As(err, &exprErr) && exprErr.Err != nil {
		cause = exprErr.Cause()
	}
	r.logger.Debug(msg,
		zap.String("expression", expr),
		zap.String("cause", cause),
	)
}
