package dice

import (
	"fmt"
	"strings"
)

// Limits bounds the work a single expression may request.
//
// Invariant: a Limits value is never mutated after construction; every stage
// receives it by value.
type Limits struct {
	// MaxExprLen is the maximum trimmed expression length in characters.
	MaxExprLen int
	// MaxTotalDice is the maximum number of dice across all terms of one expression.
	MaxTotalDice int
	// MaxDicePerTerm is the maximum count of a single NdM term.
	MaxDicePerTerm int
	// MaxSides is the maximum number of faces of a single die.
	MaxSides int
	// MaxExactCombinations is the largest product of per-term distinct sums that
	// is still enumerated exactly. Larger products fall back to Monte Carlo.
	MaxExactCombinations int
	// MaxDistSize is the largest number of distinct sums a term may have and
	// still get an exact distribution.
	MaxDistSize int
}

// DefaultLimits returns the production limits.
func DefaultLimits() Limits {
	return Limits{
		MaxExprLen:           800,
		MaxTotalDice:         2000,
		MaxDicePerTerm:       300,
		MaxSides:             1_000_000,
		MaxExactCombinations: 2_000_000,
		MaxDistSize:          200_000,
	}
}

// Validate reports every non-positive limit.
//
// Postcondition: Returns nil iff all limits are >= 1.
func (l Limits) Validate() error {
	var errs []string
	check := func(name string, v int) {
		if v < 1 {
			errs = append(errs, fmt.Sprintf("%s must be >= 1, got %d", name, v))
		}
	}
	check("max_expr_len", l.MaxExprLen)
	check("max_total_dice", l.MaxTotalDice)
	check("max_dice_per_term", l.MaxDicePerTerm)
	check("max_sides", l.MaxSides)
	check("max_exact_combinations", l.MaxExactCombinations)
	check("max_dist_size", l.MaxDistSize)
	if len(errs) > 0 {
		return fmt.Errorf("dice limits: %s", strings.Join(errs, "; "))
	}
	return nil
}
