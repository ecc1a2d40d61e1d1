package dice

import (
	"math"
	"slices"
	"strings"
)

// RollOptions tunes Engine.Roll.
type RollOptions struct {
	// SortDescending orders RollResult.Dice from highest to lowest face.
	SortDescending bool
}

// AnalyzeOptions tunes Engine.AnalyzeTarget.
type AnalyzeOptions struct {
	// Comparator defaults to >= when empty.
	Comparator Comparator
	// Samples is the Monte Carlo sample count; see ClampSamples.
	Samples int
}

// Engine evaluates dice expressions.
//
// Engine is stateless apart from its immutable limits and its Source, and is
// safe for concurrent use when the Source is.
type Engine struct {
	limits Limits
	src    Source
}

// NewEngine creates an Engine.
//
// Precondition: limits.Validate() == nil; src must be non-nil.
func NewEngine(limits Limits, src Source) *Engine {
	return &Engine{limits: limits, src: src}
}

// Limits returns the engine's limits.
func (e *Engine) Limits() Limits { return e.limits }

// parse runs the tokenizer and the parser.
func (e *Engine) parse(expr string) ([]Token, []Token, error) {
	tokens, err := Tokenize(expr, e.limits)
	if err != nil {
		return nil, nil, err
	}
	rpn, err := ToRPN(tokens)
	if err != nil {
		return nil, nil, err
	}
	return tokens, rpn, nil
}

// Roll evaluates input with freshly drawn dice.
//
// Postcondition: Returns a RollResult, or an *ExpressionError. No dice are
// drawn when the expression fails to tokenize or parse.
func (e *Engine) Roll(input string, opts RollOptions) (RollResult, error) {
	res, err := e.roll(strings.TrimSpace(input), opts)
	if err != nil {
		return RollResult{}, wrapUserError(err)
	}
	return res, nil
}

func (e *Engine) roll(expr string, opts RollOptions) (RollResult, error) {
	tokens, rpn, err := e.parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	total, rolled, err := evalRoll(rpn, e.src)
	if err != nil {
		return RollResult{}, err
	}
	expanded, err := expand(tokens, rolled.faces)
	if err != nil {
		return RollResult{}, err
	}

	all := rolled.all
	if opts.SortDescending {
		all = slices.Clone(all)
		slices.SortFunc(all, func(a, b int) int { return b - a })
	}
	if all == nil {
		all = []int{}
	}
	return RollResult{
		Input:    expr,
		Expanded: expanded,
		Dice:     all,
		Faces:    rolled.faces,
		Total:    total,
	}, nil
}

// AnalyzeTarget computes the probability that input compared with target
// holds. Exact enumeration is used when every term has a representable
// distribution and the combination count fits the limits; otherwise the
// probability is estimated by Monte Carlo sampling.
//
// Postcondition: Returns a TargetAnalysis, or an *ExpressionError.
func (e *Engine) AnalyzeTarget(input string, target float64, opts AnalyzeOptions) (TargetAnalysis, error) {
	res, err := e.analyzeTarget(strings.TrimSpace(input), target, opts)
	if err != nil {
		return TargetAnalysis{}, wrapUserError(err)
	}
	return res, nil
}

func (e *Engine) analyzeTarget(expr string, target float64, opts AnalyzeOptions) (TargetAnalysis, error) {
	if err := checkLength(expr, e.limits); err != nil {
		return TargetAnalysis{}, err
	}
	if math.IsInf(target, 0) || math.IsNaN(target) {
		return TargetAnalysis{}, ErrNonFiniteTarget
	}
	cmp, err := ParseComparator(string(opts.Comparator))
	if err != nil {
		return TargetAnalysis{}, err
	}

	tokens, rpn, err := e.parse(expr)
	if err != nil {
		return TargetAnalysis{}, err
	}
	var terms []Token
	for _, t := range tokens {
		if t.Kind == TokenDice {
			terms = append(terms, t)
		}
	}

	a := &analysis{rpn: rpn, terms: terms, target: target, cmp: cmp}
	res := TargetAnalysis{
		Input:      expr,
		Target:     target,
		Comparator: cmp,
		Terms:      []TermInfo{},
	}

	if len(terms) == 0 {
		ok, err := a.holds(nil)
		if err != nil {
			return TargetAnalysis{}, err
		}
		res.Method = MethodExact
		res.Probability = 0
		if ok {
			res.Probability = 1
		}
		res.ProbabilityPercent = FormatPercent(res.Probability, 2)
		return res, nil
	}

	if canAnalyzeExactly(terms, e.limits) {
		dists := make([]*Distribution, len(terms))
		for i, t := range terms {
			d, _ := BuildDistribution(t.Count, t.Sides, e.limits)
			dists[i] = d
		}
		success, total, err := a.exact(dists)
		if err != nil {
			return TargetAnalysis{}, err
		}
		res.Method = MethodExact
		res.ProbabilityPercent = FormatPercentExact(success, total, 2)
		res.Probability = ratioToFloat(success, total)
	} else {
		samples := ClampSamples(opts.Samples)
		successes, err := a.monteCarlo(e.src, samples)
		if err != nil {
			return TargetAnalysis{}, err
		}
		p := float64(successes) / float64(samples)
		low, high := normalCI95(p, samples)
		res.Method = MethodMonteCarlo
		res.Probability = p
		res.ProbabilityPercent = FormatPercent(p, 2)
		res.Samples = samples
		res.CI95 = &Interval{
			Low:      low,
			High:     high,
			LowText:  FormatPercent(low, 2),
			HighText: FormatPercent(high, 2),
		}
	}

	res.Terms = a.termInfos(e.limits)
	return res, nil
}
