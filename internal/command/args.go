package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cory-johannsen/diceengine/internal/dice"
)

// Argument errors. Their messages are shown to users verbatim.
var (
	ErrMissingExpression = errors.New("an expression is required")
	ErrMissingTarget     = errors.New("a numeric target is required")
	ErrInvalidTarget     = errors.New("target must be a finite number")
	ErrInvalidSamples    = errors.New("samples must be a positive integer")
	ErrInvalidCount      = errors.New("count must be a positive integer")
	ErrInvalidParam      = errors.New("parameters must look like name=number")
)

// RollArgs are the arguments of the roll command.
type RollArgs struct {
	Expr string
	Sort bool
}

func isSortFlag(s string) bool {
	switch strings.ToLower(s) {
	case "--sort", "-s", "sort":
		return true
	}
	return false
}

// ParseRollArgs parses "[--sort|-s] <expr>". The sort flag may also trail
// the expression; the remaining words are joined with single spaces.
//
// Postcondition: Returns RollArgs with a non-empty Expr, or ErrMissingExpression.
func ParseRollArgs(args []string) (RollArgs, error) {
	var out RollArgs
	if len(args) > 0 && isSortFlag(args[0]) {
		out.Sort = true
		args = args[1:]
	}
	if len(args) > 0 && isSortFlag(args[len(args)-1]) {
		out.Sort = true
		args = args[:len(args)-1]
	}
	out.Expr = strings.Join(args, " ")
	if out.Expr == "" {
		return RollArgs{}, ErrMissingExpression
	}
	return out, nil
}

// ChanceArgs are the arguments of the chance command.
type ChanceArgs struct {
	Expr       string
	Comparator dice.Comparator
	Target     float64
	// Samples is zero when not given; the engine then applies its default.
	Samples int
}

func isComparator(s string) bool {
	_, err := dice.ParseComparator(s)
	return err == nil && s != ""
}

// ParseChanceArgs parses "<expr> <cmp> <target> [samples]" or
// "<expr> <target>", the latter defaulting the comparator to >=.
//
// Postcondition: Returns ChanceArgs with a non-empty Expr and finite Target,
// or one of the argument errors.
func ParseChanceArgs(args []string) (ChanceArgs, error) {
	n := len(args)
	out := ChanceArgs{Comparator: dice.CmpGE}

	var exprEnd, targetAt int
	switch {
	case n >= 4 && isComparator(args[n-3]):
		samples, err := strconv.Atoi(args[n-1])
		if err != nil || samples <= 0 {
			return ChanceArgs{}, fmt.Errorf("%w: %q", ErrInvalidSamples, args[n-1])
		}
		out.Samples = samples
		out.Comparator = dice.Comparator(args[n-3])
		exprEnd, targetAt = n-3, n-2
	case n >= 3 && isComparator(args[n-2]):
		out.Comparator = dice.Comparator(args[n-2])
		exprEnd, targetAt = n-2, n-1
	case n >= 2 && isComparator(args[n-2]):
		return ChanceArgs{}, ErrMissingExpression
	case n >= 2:
		exprEnd, targetAt = n-1, n-1
	case n == 1 && !isComparator(args[0]):
		return ChanceArgs{}, ErrMissingTarget
	default:
		return ChanceArgs{}, ErrMissingExpression
	}

	target, err := strconv.ParseFloat(args[targetAt], 64)
	if err != nil {
		return ChanceArgs{}, fmt.Errorf("%w: %q", ErrMissingTarget, args[targetAt])
	}
	if math.IsInf(target, 0) || math.IsNaN(target) {
		return ChanceArgs{}, fmt.Errorf("%w: %q", ErrInvalidTarget, args[targetAt])
	}
	out.Target = target

	out.Expr = strings.Join(args[:exprEnd], " ")
	if out.Expr == "" {
		return ChanceArgs{}, ErrMissingExpression
	}
	return out, nil
}

// HPArgs are the arguments of the hp command.
type HPArgs struct {
	// Subject is a preset ID or a formula expression.
	Subject string
	Params  map[string]float64
}

// ParseHPArgs parses "<preset|formula> [name=value ...]". Every word
// containing '=' is a parameter; the other words form the subject.
//
// Postcondition: Returns HPArgs with a non-empty Subject, or an argument error.
func ParseHPArgs(args []string) (HPArgs, error) {
	out := HPArgs{Params: map[string]float64{}}
	var subject []string
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			subject = append(subject, a)
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if name == "" || err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return HPArgs{}, fmt.Errorf("%w: %q", ErrInvalidParam, a)
		}
		out.Params[name] = v
	}
	out.Subject = strings.Join(subject, " ")
	if out.Subject == "" {
		return HPArgs{}, ErrMissingExpression
	}
	return out, nil
}

// ParseCount parses an optional positive count, returning def when args is empty.
// Callers pass def 0 to defer to the server's default.
func ParseCount(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, args[0])
	}
	return n, nil
}
