package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/diceengine/internal/dice"
)

func TestParseRollArgs(t *testing.T) {
	got, err := ParseRollArgs([]string{"2d6", "+", "3"})
	require.NoError(t, err)
	assert.Equal(t, RollArgs{Expr: "2d6 + 3"}, got)

	got, err = ParseRollArgs([]string{"--sort", "4d6"})
	require.NoError(t, err)
	assert.Equal(t, RollArgs{Expr: "4d6", Sort: true}, got)

	got, err = ParseRollArgs([]string{"4d6", "sort"})
	require.NoError(t, err)
	assert.Equal(t, RollArgs{Expr: "4d6", Sort: true}, got)

	_, err = ParseRollArgs(nil)
	assert.ErrorIs(t, err, ErrMissingExpression)
	_, err = ParseRollArgs([]string{"-s"})
	assert.ErrorIs(t, err, ErrMissingExpression)
}

func TestParseChanceArgs(t *testing.T) {
	cases := []struct {
		args []string
		want ChanceArgs
	}{
		{[]string{"2d6", "7"}, ChanceArgs{Expr: "2d6", Comparator: dice.CmpGE, Target: 7}},
		{[]string{"2d6", "<", "7"}, ChanceArgs{Expr: "2d6", Comparator: dice.CmpLT, Target: 7}},
		{[]string{"2d6", "+", "3", "==", "10"}, ChanceArgs{Expr: "2d6 + 3", Comparator: dice.CmpEQ, Target: 10}},
		{[]string{"300d6", ">=", "1000", "20000"}, ChanceArgs{Expr: "300d6", Comparator: dice.CmpGE, Target: 1000, Samples: 20000}},
		{[]string{"1d20", "!=", "-1.5"}, ChanceArgs{Expr: "1d20", Comparator: dice.CmpNE, Target: -1.5}},
	}
	for _, tc := range cases {
		got, err := ParseChanceArgs(tc.args)
		require.NoError(t, err, tc.args)
		assert.Equal(t, tc.want, got, tc.args)
	}
}

func TestParseChanceArgs_Errors(t *testing.T) {
	cases := []struct {
		args []string
		want error
	}{
		{nil, ErrMissingExpression},
		{[]string{"2d6"}, ErrMissingTarget},
		{[]string{">="}, ErrMissingExpression},
		{[]string{">=", "7"}, ErrMissingExpression},
		{[]string{"2d6", ">="}, ErrMissingTarget},
		{[]string{"2d6", "seven"}, ErrMissingTarget},
		{[]string{"2d6", ">=", "Inf"}, ErrInvalidTarget},
		{[]string{"2d6", ">=", "NaN"}, ErrInvalidTarget},
		{[]string{"2d6", ">=", "7", "0"}, ErrInvalidSamples},
		{[]string{"2d6", ">=", "7", "many"}, ErrInvalidSamples},
	}
	for _, tc := range cases {
		_, err := ParseChanceArgs(tc.args)
		assert.ErrorIs(t, err, tc.want, tc.args)
	}
}

func TestParseHPArgs(t *testing.T) {
	got, err := ParseHPArgs([]string{"2d8+{level}", "level=3"})
	require.NoError(t, err)
	assert.Equal(t, "2d8+{level}", got.Subject)
	assert.Equal(t, map[string]float64{"level": 3}, got.Params)

	got, err = ParseHPArgs([]string{"goblin"})
	require.NoError(t, err)
	assert.Equal(t, "goblin", got.Subject)
	assert.Empty(t, got.Params)

	_, err = ParseHPArgs([]string{"1d6", "=3"})
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = ParseHPArgs([]string{"1d6", "level=high"})
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = ParseHPArgs([]string{"level=1"})
	assert.ErrorIs(t, err, ErrMissingExpression)
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount(nil, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = ParseCount([]string{"3"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = ParseCount([]string{"-1"}, 10)
	assert.ErrorIs(t, err, ErrInvalidCount)
}
