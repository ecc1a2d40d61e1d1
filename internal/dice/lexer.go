package dice

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenPattern matches, in priority order: NdM, dM, integers and decimals,
// identifiers, and single-character punctuation.
var tokenPattern = regexp.MustCompile(`\d+[dD]\d+|[dD]\d+|\d+(?:\.\d+)?|[a-zA-Z]+|[(),+\-*/]`)

// checkLength enforces the empty/too-long rules on already trimmed text.
func checkLength(expr string, lim Limits) error {
	if expr == "" {
		return ErrEmptyExpression
	}
	if utf8.RuneCountInString(expr) > lim.MaxExprLen {
		return ErrExpressionTooLong
	}
	return nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Tokenize splits a trimmed expression into tokens and enforces the dice
// limits. No randomness is consumed.
//
// Precondition: expr is trimmed.
// Postcondition: Returns tokens whose concatenated source text equals expr
// with whitespace removed, or an error wrapping one of the lexer sentinels.
func Tokenize(expr string, lim Limits) ([]Token, error) {
	if err := checkLength(expr, lim); err != nil {
		return nil, err
	}

	s := stripSpace(expr)
	parts := tokenPattern.FindAllString(s, -1)
	if len(parts) == 0 || strings.Join(parts, "") != s {
		return nil, ErrInvalidCharacters
	}

	tokens := make([]Token, 0, len(parts))
	totalDice := 0
	for _, p := range parts {
		tok, err := scanPart(p, lim)
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenDice {
			totalDice += tok.Count
			if totalDice > lim.MaxTotalDice {
				return nil, ErrTooManyTotalDice
			}
		}
		tokens = append(tokens, tok)
	}

	for i, t := range tokens {
		if t.Kind != TokenFunc {
			continue
		}
		if i+1 >= len(tokens) || tokens[i+1].Kind != TokenLParen {
			return nil, errorf(ErrFuncMissingParen, "%s must be followed by '(' e.g. %s(1,2)", t.Func, t.Func)
		}
	}
	return tokens, nil
}

func scanPart(p string, lim Limits) (Token, error) {
	switch p {
	case "(":
		return Token{Kind: TokenLParen}, nil
	case ")":
		return Token{Kind: TokenRParen}, nil
	case ",":
		return Token{Kind: TokenComma}, nil
	case "+":
		return Token{Kind: TokenOperator, Op: OpAdd}, nil
	case "-":
		return Token{Kind: TokenOperator, Op: OpSub}, nil
	case "*":
		return Token{Kind: TokenOperator, Op: OpMul}, nil
	case "/":
		return Token{Kind: TokenOperator, Op: OpDiv}, nil
	}

	c := p[0]
	isDigit := c >= '0' && c <= '9'
	lower := strings.ToLower(p)

	if !isDigit && (c != 'd' && c != 'D' || len(p) == 1 || !isAllDigits(p[1:])) {
		switch Func(lower) {
		case FuncMin, FuncMax:
			return Token{Kind: TokenFunc, Func: Func(lower), Raw: p}, nil
		}
		return Token{}, errorf(ErrUnsupportedIdent, "%s", p)
	}

	if idx := strings.IndexByte(lower, 'd'); idx >= 0 {
		return scanDice(p, lower[:idx], lower[idx+1:], lim)
	}

	v, err := strconv.ParseFloat(p, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return Token{}, errorf(ErrInvalidNumber, "%s", p)
	}
	return Token{Kind: TokenNumber, Raw: p, Value: v}, nil
}

func scanDice(raw, countStr, sidesStr string, lim Limits) (Token, error) {
	count := 1
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil || n <= 0 {
			if err != nil && n > 0 {
				// Overflowed the int range: certainly above any per-term limit.
				return Token{}, errorf(ErrTooManyDiceInTerm, "%s", raw)
			}
			return Token{}, errorf(ErrInvalidDiceCount, "%s", raw)
		}
		count = n
	}
	sides, err := strconv.Atoi(sidesStr)
	if err != nil || sides <= 0 {
		if err != nil && sides > 0 {
			return Token{}, errorf(ErrTooManySides, "%s", raw)
		}
		return Token{}, errorf(ErrInvalidDiceSides, "%s", raw)
	}
	if count > lim.MaxDicePerTerm {
		return Token{}, errorf(ErrTooManyDiceInTerm, "%s", raw)
	}
	if sides > lim.MaxSides {
		return Token{}, errorf(ErrTooManySides, "%s", raw)
	}
	return Token{Kind: TokenDice, Raw: raw, Count: count, Sides: sides}, nil
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
