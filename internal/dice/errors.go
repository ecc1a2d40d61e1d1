package dice

import (
	"errors"
	"fmt"
)

// Internal failure conditions. Callers only ever see them wrapped inside an
// *ExpressionError, but they stay reachable through errors.Is.
var (
	ErrEmptyExpression      = errors.New("expression is empty")
	ErrExpressionTooLong    = errors.New("expression too long")
	ErrInvalidCharacters    = errors.New("invalid characters or unsupported syntax")
	ErrUnsupportedIdent     = errors.New("unsupported identifier")
	ErrInvalidNumber        = errors.New("invalid number")
	ErrInvalidDiceCount     = errors.New("invalid dice count")
	ErrInvalidDiceSides     = errors.New("invalid dice sides")
	ErrTooManyDiceInTerm    = errors.New("too many dice in one term")
	ErrTooManySides         = errors.New("dice has too many sides")
	ErrTooManyTotalDice     = errors.New("too many total dice in one expression")
	ErrFuncMissingParen     = errors.New("function must be followed by '('")
	ErrTooFewArguments      = errors.New("function requires at least 2 arguments")
	ErrCommaOutsideParens   = errors.New("comma is outside parentheses")
	ErrCommaOutsideFunction = errors.New("comma can only be used inside min()/max()")
	ErrEmptyParens          = errors.New("empty parentheses are not allowed")
	ErrMismatchedParens     = errors.New("mismatched parentheses")
	ErrUnaryNoOperand       = errors.New("unary operator has no operand")
	ErrBinaryOperands       = errors.New("binary operator has insufficient operands")
	ErrFuncOperands         = errors.New("function has insufficient operands")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrInvalidExpression    = errors.New("invalid expression")
	ErrNonFiniteResult      = errors.New("result is not a finite number")
	ErrNonFiniteTarget      = errors.New("target must be a finite number")
	ErrInvalidComparator    = errors.New("invalid comparator")
	ErrInvalidRPNToken      = errors.New("invalid token in RPN")
	ErrMissingDiceSums      = errors.New("dice sums are missing for evaluation")
)

// ExpressionError is the single error type returned by Engine operations.
// Error() is a short message suitable for end users; the internal cause is
// kept for logging and errors.Is matching.
type ExpressionError struct {
	Message string
	Err     error
}

func (e *ExpressionError) Error() string { return e.Message }

// Unwrap returns the internal cause.
func (e *ExpressionError) Unwrap() error { return e.Err }

// Cause returns the internal message, useful in logs.
func (e *ExpressionError) Cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

const genericMessage = "The expression is invalid."

var friendlyMessages = []struct {
	err error
	msg string
}{
	{ErrInvalidCharacters, "The expression contains unsupported characters. (allowed: numbers, d, + - * /, parentheses, commas between function arguments, min/max)"},
	{ErrUnsupportedIdent, "Unsupported function or identifier. (supported: min, max)"},
	{ErrFuncMissingParen, "A function must be followed by parentheses, e.g. max(1,2)"},
	{ErrTooFewArguments, "min/max need at least 2 arguments, e.g. min(1,2)"},
	{ErrCommaOutsideParens, "A comma (,) can only separate min()/max() arguments."},
	{ErrCommaOutsideFunction, "A comma (,) can only separate min()/max() arguments."},
	{ErrMismatchedParens, `Parentheses do not match. Check the number of "(" and ")".`},
	{ErrEmptyParens, `Empty parentheses "()" are not allowed.`},
	{ErrDivisionByZero, "Cannot divide by zero."},
	{ErrUnaryNoOperand, "An operator is in the wrong place (e.g. a trailing operator or two operators in a row)."},
	{ErrBinaryOperands, "An operator is in the wrong place (e.g. a trailing operator or two operators in a row)."},
	{ErrFuncOperands, "An operator is in the wrong place (e.g. a trailing operator or two operators in a row)."},
	{ErrInvalidExpression, "The expression is malformed. Check operator and parenthesis placement."},
	{ErrEmptyExpression, "The expression is empty."},
	{ErrExpressionTooLong, "The expression is too long."},
	{ErrTooManyDiceInTerm, "Too many dice in one term."},
	{ErrTooManySides, "A die has too many sides."},
	{ErrTooManyTotalDice, "Too many dice in one expression."},
	{ErrInvalidDiceCount, "The number of dice must be a positive integer."},
	{ErrInvalidDiceSides, "The number of sides must be a positive integer."},
	{ErrInvalidNumber, "A number in the expression is not valid."},
	{ErrNonFiniteResult, "The result is not a finite number."},
	{ErrNonFiniteTarget, "The target must be a finite number."},
	{ErrInvalidComparator, "The comparator must be one of >=, >, <=, <, ==, !="},
}

// FriendlyMessage maps an internal failure to the message shown to users.
//
// Postcondition: Returns a non-empty string; unrecognized errors map to a
// generic "invalid expression" message.
func FriendlyMessage(err error) string {
	var exprErr *ExpressionError
	if errors.As(err, &exprErr) {
		return exprErr.Message
	}
	for _, fm := range friendlyMessages {
		if errors.Is(err, fm.err) {
			return fm.msg
		}
	}
	return genericMessage
}

// wrapUserError converts any internal failure into an *ExpressionError.
// Errors that are already user-facing pass through unchanged.
func wrapUserError(err error) error {
	if err == nil {
		return nil
	}
	var exprErr *ExpressionError
	if errors.As(err, &exprErr) {
		return exprErr
	}
	return &ExpressionError{Message: FriendlyMessage(err), Err: err}
}

func errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
