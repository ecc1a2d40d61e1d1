// Package hpformula resolves hit-point formulas: dice expressions with named
// {param} placeholders whose rolled value is clamped, rounded and floored at 0.
package hpformula

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cory-johannsen/diceengine/internal/dice"
)

var (
	ErrEmptyParamName  = errors.New("hp formula has an empty parameter name")
	ErrMissingParam    = errors.New("hp formula is missing a parameter")
	ErrParamNotNumber  = errors.New("hp formula parameter is not a number")
	ErrResultNotFinite = errors.New("hp formula result is not a number")
)

// Roller rolls a dice expression. *dice.Roller and *dice.Engine satisfy it.
type Roller interface {
	Roll(expr string, opts dice.RollOptions) (dice.RollResult, error)
}

// Formula is a dice expression template, e.g. "{level}d8+{con}".
type Formula struct {
	Expr   string             `yaml:"expr" json:"expr"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	// Min and Max clamp the rolled total when set.
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Result is a resolved formula.
type Result struct {
	// Expression is the formula after placeholder substitution.
	Expression string
	Roll       dice.RollResult
	// HP is the clamped, rounded, non-negative value.
	HP int
}

var placeholder = regexp.MustCompile(`\{([^}]+)\}`)

// params returns the parameters keyed by trimmed name. Blank names are ignored.
func (f Formula) params() (map[string]float64, error) {
	out := make(map[string]float64, len(f.Params))
	for k, v := range f.Params {
		name := strings.TrimSpace(k)
		if name == "" {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s", ErrParamNotNumber, name)
		}
		out[name] = v
	}
	return out, nil
}

// Substitute replaces every {name} placeholder in the trimmed expression with
// the parameter's value.
//
// Postcondition: Returns an expression without placeholders, or an error
// wrapping ErrEmptyParamName, ErrMissingParam or ErrParamNotNumber.
func (f Formula) Substitute() (string, error) {
	params, err := f.params()
	if err != nil {
		return "", err
	}
	var subErr error
	out := placeholder.ReplaceAllStringFunc(strings.TrimSpace(f.Expr), func(m string) string {
		if subErr != nil {
			return m
		}
		key := strings.TrimSpace(m[1 : len(m)-1])
		if key == "" {
			subErr = ErrEmptyParamName
			return m
		}
		v, ok := params[key]
		if !ok {
			subErr = fmt.Errorf("%w: %s", ErrMissingParam, key)
			return m
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	})
	if subErr != nil {
		return "", subErr
	}
	return out, nil
}

// Resolve rolls f. The boolean is false, with a nil error, when f has no
// expression.
//
// Precondition: r must be non-nil.
// Postcondition: On success Result.HP >= 0.
func Resolve(r Roller, f Formula) (Result, bool, error) {
	if strings.TrimSpace(f.Expr) == "" {
		return Result{}, false, nil
	}
	expr, err := f.Substitute()
	if err != nil {
		return Result{}, false, err
	}
	roll, err := r.Roll(expr, dice.RollOptions{})
	if err != nil {
		return Result{}, false, err
	}
	if math.IsNaN(roll.Total) || math.IsInf(roll.Total, 0) {
		return Result{}, false, ErrResultNotFinite
	}

	v := roll.Total
	if f.Min != nil {
		v = math.Max(v, *f.Min)
	}
	if f.Max != nil {
		v = math.Min(v, *f.Max)
	}
	hp := max(0, int(math.Floor(v+0.5)))
	return Result{Expression: expr, Roll: roll, HP: hp}, true, nil
}
