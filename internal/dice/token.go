package dice

import "fmt"

// TokenKind discriminates the variants of Token.
type TokenKind int

const (
	TokenNumber TokenKind = iota
	TokenDice
	TokenOperator
	TokenFunc
	TokenComma
	TokenLParen
	TokenRParen
)

func (k TokenKind) String() string {
	switch k {
	case TokenNumber:
		return "number"
	case TokenDice:
		return "dice"
	case TokenOperator:
		return "operator"
	case TokenFunc:
		return "func"
	case TokenComma:
		return "comma"
	case TokenLParen:
		return "lparen"
	case TokenRParen:
		return "rparen"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Op is an arithmetic operator. Unary plus and minus are distinct operators
// so the parser can give them their own precedence.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpPos
	OpNeg
)

// Symbol returns the operator as written in an expression.
func (o Op) Symbol() string {
	switch o {
	case OpAdd, OpPos:
		return "+"
	case OpSub, OpNeg:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

// Unary reports whether o takes a single operand.
func (o Op) Unary() bool { return o == OpPos || o == OpNeg }

func (o Op) precedence() int {
	switch o {
	case OpPos, OpNeg:
		return 3
	case OpMul, OpDiv:
		return 2
	default:
		return 1
	}
}

func (o Op) rightAssociative() bool { return o.Unary() }

// Func is a variadic builtin function.
type Func string

const (
	FuncMin Func = "min"
	FuncMax Func = "max"
)

// Token is one lexical element of an expression. Only the fields relevant to
// Kind are set.
type Token struct {
	Kind TokenKind
	// Raw is the source text for numbers and dice terms.
	Raw string

	Value float64 // TokenNumber
	Count int     // TokenDice
	Sides int     // TokenDice
	Op    Op      // TokenOperator
	Func  Func    // TokenFunc
	// Argc is the argument count of a TokenFunc, set by the parser.
	Argc int
}

// MinSum is the smallest total of a dice term.
func (t Token) MinSum() int { return t.Count }

// MaxSum is the largest total of a dice term.
func (t Token) MaxSum() int { return t.Count * t.Sides }

func (t Token) String() string {
	switch t.Kind {
	case TokenNumber, TokenDice:
		return t.Raw
	case TokenOperator:
		if t.Op.Unary() {
			return "u" + t.Op.Symbol()
		}
		return t.Op.Symbol()
	case TokenFunc:
		if t.Argc > 0 {
			return fmt.Sprintf("%s/%d", t.Func, t.Argc)
		}
		return string(t.Func)
	case TokenComma:
		return ","
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	default:
		return t.Kind.String()
	}
}
