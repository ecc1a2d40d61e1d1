package dice_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpnString(t *testing.T, expr string) string {
	t.Helper()
	tokens, err := dice.Tokenize(expr, dice.DefaultLimits())
	require.NoError(t, err)
	rpn, err := dice.ToRPN(tokens)
	require.NoError(t, err)
	parts := make([]string, len(rpn))
	for i, tok := range rpn {
		parts[i] = tok.String()
	}
	return strings.Join(parts, " ")
}

func TestTokenize_Kinds(t *testing.T) {
	tokens, err := dice.Tokenize("2d6 + d8*MAX(1.5, 3D4)", dice.DefaultLimits())
	require.NoError(t, err)

	kinds := make([]dice.TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []dice.TokenKind{
		dice.TokenDice, dice.TokenOperator, dice.TokenDice, dice.TokenOperator,
		dice.TokenFunc, dice.TokenLParen, dice.TokenNumber, dice.TokenComma,
		dice.TokenDice, dice.TokenRParen,
	}, kinds)

	assert.Equal(t, 2, tokens[0].Count)
	assert.Equal(t, 6, tokens[0].Sides)
	assert.Equal(t, 1, tokens[2].Count, "dM defaults to one die")
	assert.Equal(t, 8, tokens[2].Sides)
	assert.Equal(t, dice.FuncMax, tokens[4].Func, "function names are case-insensitive")
	assert.Equal(t, 1.5, tokens[6].Value)
	assert.Equal(t, 3, tokens[8].Count)
	assert.Equal(t, 4, tokens[8].Sides)
}

func TestTokenize_Errors(t *testing.T) {
	lim := dice.DefaultLimits()
	cases := []struct {
		expr string
		want error
	}{
		{"", dice.ErrEmptyExpression},
		{strings.Repeat("1+", 400) + "1", dice.ErrExpressionTooLong},
		{"2 $ 3", dice.ErrInvalidCharacters},
		{"1.5.2", dice.ErrInvalidCharacters},
		{"foo(1,2)", dice.ErrUnsupportedIdent},
		{"0d6", dice.ErrInvalidDiceCount},
		{"2d0", dice.ErrInvalidDiceSides},
		{"301d6", dice.ErrTooManyDiceInTerm},
		{"99999999999999999999d6", dice.ErrTooManyDiceInTerm},
		{"1d1000001", dice.ErrTooManySides},
		{strings.TrimSuffix(strings.Repeat("300d6+", 7), "+"), dice.ErrTooManyTotalDice},
		{"min 1,2", dice.ErrFuncMissingParen},
		{"1+max", dice.ErrFuncMissingParen},
	}
	for _, tc := range cases {
		_, err := dice.Tokenize(tc.expr, lim)
		assert.ErrorIs(t, err, tc.want, "expr %q", tc.expr)
	}
}

func TestTokenize_CountsRunesForLength(t *testing.T) {
	lim := dice.DefaultLimits()
	lim.MaxExprLen = 3
	_, err := dice.Tokenize("1+2", lim)
	require.NoError(t, err)
	_, err = dice.Tokenize("1+22", lim)
	assert.ErrorIs(t, err, dice.ErrExpressionTooLong)
}

func TestToRPN_Precedence(t *testing.T) {
	cases := map[string]string{
		"1+2*3":           "1 2 3 * +",
		"(1+2)*3":         "1 2 + 3 *",
		"2-1-1":           "2 1 - 1 -",
		"8/4/2":           "8 4 / 2 /",
		"-2*3":            "2 u- 3 *",
		"--1":             "1 u- u-",
		"2*-3":            "2 3 u- *",
		"+1d6":            "1d6 u+",
		"min(1,2,3)":      "1 2 3 min/3",
		"max(1+2,3)":      "1 2 + 3 max/2",
		"max(-1,2d6)+1":   "1 u- 2d6 max/2 1 +",
		"min(max(1,2),3)": "1 2 max/2 3 min/2",
		"max((1,2),3)":    "1 2 3 max/3",
		"min(1,(2,3))":    "1 2 3 min/3",
	}
	for expr, want := range cases {
		assert.Equal(t, want, rpnString(t, expr), "expr %q", expr)
	}
}

func TestToRPN_Errors(t *testing.T) {
	cases := []struct {
		expr string
		want error
	}{
		{"(1+2", dice.ErrMismatchedParens},
		{"1+2)", dice.ErrMismatchedParens},
		{"()", dice.ErrEmptyParens},
		{"max()", dice.ErrEmptyParens},
		{"1,2", dice.ErrCommaOutsideParens},
		{"(1,2)", dice.ErrCommaOutsideFunction},
		{"1+(2,3)", dice.ErrCommaOutsideFunction},
		{"min(1)", dice.ErrTooFewArguments},
	}
	for _, tc := range cases {
		tokens, err := dice.Tokenize(tc.expr, dice.DefaultLimits())
		require.NoError(t, err, "expr %q", tc.expr)
		_, err = dice.ToRPN(tokens)
		assert.True(t, errors.Is(err, tc.want), "expr %q: got %v, want %v", tc.expr, err, tc.want)
	}
}
