// Package dice implements the dice-notation expression language: a tokenizer,
// a shunting-yard parser, a dual-mode RPN evaluator, exact sum distributions
// and the target probability analyzer.
//
// The package performs no I/O. Randomness comes from an injected Source.
package dice

import (
	"fmt"
	"strings"
)

// RollResult holds the full audit trail for a single expression roll.
//
// Postcondition: for expressions made only of dice terms and '+',
// Total == sum(Dice).
type RollResult struct {
	Input    string  // trimmed input, e.g. "2d6+3"
	Expanded string  // input with every dice term replaced by its faces, e.g. "(4 + 5) + 3"
	Dice     []int   // every die face in draw order, or sorted descending on request
	Faces    [][]int // faces grouped per dice term occurrence, in draw order
	Total    float64
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → (4 + 5) + 3 = 12"
//
// Precondition: r.Input is non-empty.
func (r RollResult) String() string {
	if r.Input == "" {
		panic("dice: RollResult.String() precondition violated: Input must be non-empty")
	}
	return fmt.Sprintf("%s → %s = %s", r.Input, r.Expanded, FormatNumber(r.Total))
}

// DiceList renders Dice as "[a, b, c]".
func (r RollResult) DiceList() string {
	parts := make([]string, len(r.Dice))
	for i, d := range r.Dice {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// IntTotal returns Total rounded half away from zero.
func (r RollResult) IntTotal() int {
	if r.Total < 0 {
		return -int(-r.Total + 0.5)
	}
	return int(r.Total + 0.5)
}
