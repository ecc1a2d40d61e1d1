package dice

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// FormatNumber renders integers without decimals and other values with at
// most six fractional digits, trailing zeros stripped.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) {
		if v == 0 {
			return "0"
		}
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// FormatPercentExact renders success/total as a percentage with a fixed
// number of decimals using integer arithmetic only. The last digit is rounded
// half to even rather than truncated, so the percentages of an event and its
// complement always add up to exactly 100: 21/36 renders 58.33% and 15/36
// renders 41.67%, where truncation would give 41.66%.
//
// Precondition: 0 <= success <= total; decimals >= 0.
func FormatPercentExact(success, total *big.Int, decimals int) string {
	if total.Sign() == 0 {
		return FormatPercent(0, decimals)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	num := new(big.Int).Mul(success, big.NewInt(100))
	num.Mul(num, scale)

	scaled, rem := new(big.Int).QuoRem(num, total, new(big.Int))
	switch rem.Lsh(rem, 1).Cmp(total) {
	case 1:
		scaled.Add(scaled, big.NewInt(1))
	case 0:
		if scaled.Bit(0) == 1 {
			scaled.Add(scaled, big.NewInt(1))
		}
	}

	intPart, fracPart := new(big.Int).QuoRem(scaled, scale, new(big.Int))
	if decimals == 0 {
		return intPart.String() + "%"
	}
	frac := fracPart.String()
	if pad := decimals - len(frac); pad > 0 {
		frac = strings.Repeat("0", pad) + frac
	}
	return intPart.String() + "." + frac + "%"
}

// FormatPercent renders a probability in [0, 1] as a percentage.
func FormatPercent(p float64, decimals int) string {
	return strconv.FormatFloat(p*100, 'f', decimals, 64) + "%"
}

// ratioToFloat approximates a/b as a float64.
func ratioToFloat(a, b *big.Int) float64 {
	if b.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(a, b).Float64()
	return f
}

var (
	spaceAfterLParen  = regexp.MustCompile(`\(\s+`)
	spaceBeforeRParen = regexp.MustCompile(`\s+\)`)
	repeatedSpace     = regexp.MustCompile(`\s{2,}`)
)

// expand renders the infix tokens with every dice term replaced by the faces
// it rolled, e.g. "2d6+3" becomes "(4 + 5) + 3".
//
// Precondition: faces holds one group per dice token, in token order.
func expand(tokens []Token, faces [][]int) (string, error) {
	var b strings.Builder
	di := 0
	for i, t := range tokens {
		switch t.Kind {
		case TokenNumber:
			b.WriteString(FormatNumber(t.Value))

		case TokenDice:
			if di >= len(faces) {
				return "", errorf(ErrMissingDiceSums, "dice face mapping failed")
			}
			group := faces[di]
			di++
			if len(group) == 1 {
				b.WriteString(strconv.Itoa(group[0]))
				break
			}
			parts := make([]string, len(group))
			for k, f := range group {
				parts[k] = strconv.Itoa(f)
			}
			inner := strings.Join(parts, " + ")
			enclosed := i > 0 && tokens[i-1].Kind == TokenLParen &&
				i+1 < len(tokens) && tokens[i+1].Kind == TokenRParen
			if enclosed {
				b.WriteString(inner)
			} else {
				b.WriteString("(" + inner + ")")
			}

		case TokenFunc:
			b.WriteString(string(t.Func))
		case TokenComma:
			b.WriteString(", ")
		case TokenLParen:
			b.WriteString("(")
		case TokenRParen:
			b.WriteString(")")

		case TokenOperator:
			if isUnaryAt(tokens, i) {
				b.WriteString(t.Op.Symbol())
			} else {
				b.WriteString(" " + t.Op.Symbol() + " ")
			}
		}
	}

	s := spaceAfterLParen.ReplaceAllString(b.String(), "(")
	s = spaceBeforeRParen.ReplaceAllString(s, ")")
	s = repeatedSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s), nil
}

// isUnaryAt applies the parser's unary rule to the infix token at i.
func isUnaryAt(tokens []Token, i int) bool {
	if i == 0 {
		return true
	}
	return normalizeUnary(tokens[i], &tokens[i-1]).Op.Unary()
}
