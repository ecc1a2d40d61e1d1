package dice

import (
	"math"
)

// diceResolver supplies the value of each dice term as the evaluator reaches
// it. The two implementations are the two evaluation modes.
type diceResolver interface {
	resolve(t Token) (float64, error)
}

// rollingResolver samples dice and keeps the per-die trace (stochastic mode).
type rollingResolver struct {
	src Source
	// all holds every face in draw order; faces groups them per term occurrence.
	all   []int
	faces [][]int
}

func (r *rollingResolver) resolve(t Token) (float64, error) {
	faces := make([]int, t.Count)
	sum := 0
	for i := range faces {
		faces[i] = rollDie(r.src, t.Sides)
		sum += faces[i]
	}
	r.faces = append(r.faces, faces)
	r.all = append(r.all, faces...)
	return float64(sum), nil
}

// sumResolver substitutes externally supplied per-term sums (symbolic mode).
type sumResolver struct {
	sums []int
	next int
}

func (r *sumResolver) resolve(Token) (float64, error) {
	if r.next >= len(r.sums) {
		return 0, ErrMissingDiceSums
	}
	v := r.sums[r.next]
	r.next++
	return float64(v), nil
}

// evaluate runs the RPN stack machine.
//
// Postcondition: Returns the single finite value left on the stack, or an error.
func evaluate(rpn []Token, dice diceResolver) (float64, error) {
	st := make([]float64, 0, len(rpn))

	for _, t := range rpn {
		switch t.Kind {
		case TokenNumber:
			st = append(st, t.Value)

		case TokenDice:
			v, err := dice.resolve(t)
			if err != nil {
				return 0, err
			}
			st = append(st, v)

		case TokenOperator:
			if t.Op.Unary() {
				if len(st) < 1 {
					return 0, ErrUnaryNoOperand
				}
				if t.Op == OpNeg {
					st[len(st)-1] = -st[len(st)-1]
				}
				continue
			}
			if len(st) < 2 {
				return 0, ErrBinaryOperands
			}
			b := st[len(st)-1]
			a := st[len(st)-2]
			st = st[:len(st)-2]
			v, err := applyBinary(t.Op, a, b)
			if err != nil {
				return 0, err
			}
			st = append(st, v)

		case TokenFunc:
			if t.Argc < 2 {
				return 0, errorf(ErrTooFewArguments, "%s() requires at least 2 arguments", t.Func)
			}
			if len(st) < t.Argc {
				return 0, errorf(ErrFuncOperands, "%s()", t.Func)
			}
			args := st[len(st)-t.Argc:]
			v := args[0]
			for _, a := range args[1:] {
				if t.Func == FuncMax {
					v = math.Max(v, a)
				} else {
					v = math.Min(v, a)
				}
			}
			st = append(st[:len(st)-t.Argc], v)

		case TokenComma, TokenLParen, TokenRParen:
			return 0, errorf(ErrInvalidRPNToken, "%s", t.Kind)

		default:
			return 0, errorf(ErrInvalidRPNToken, "%s", t.Kind)
		}
	}

	if len(st) != 1 {
		return 0, ErrInvalidExpression
	}
	if math.IsInf(st[0], 0) || math.IsNaN(st[0]) {
		return 0, ErrNonFiniteResult
	}
	return st[0], nil
}

func applyBinary(op Op, a, b float64) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	default:
		return 0, errorf(ErrInvalidRPNToken, "operator %s", op.Symbol())
	}
}

// evalRoll evaluates rpn in stochastic mode.
func evalRoll(rpn []Token, src Source) (float64, *rollingResolver, error) {
	r := &rollingResolver{src: src}
	v, err := evaluate(rpn, r)
	if err != nil {
		return 0, nil, err
	}
	return v, r, nil
}

// evalWithSums evaluates rpn in symbolic mode with one sum per dice term
// occurrence, in left-to-right order.
func evalWithSums(rpn []Token, sums []int) (float64, error) {
	return evaluate(rpn, &sumResolver{sums: sums})
}
