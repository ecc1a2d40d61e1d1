package dice

// ToRPN converts infix tokens to postfix order with the shunting-yard
// algorithm. Unary signs are resolved here; function tokens are emitted with
// their argument count.
//
// Precondition: tokens come from Tokenize.
// Postcondition: The result contains no comma or parenthesis tokens.
func ToRPN(tokens []Token) ([]Token, error) {
	var (
		output []Token
		stack  []Token
		// calls tracks, for every open parenthesis, whether it opened a
		// function call; argc holds the comma count of each open call. A
		// comma counts toward the innermost open call even when plain
		// parentheses sit between them.
		calls []bool
		argc  []int
		prev  *Token
	)

	for i := range tokens {
		t := tokens[i]
		switch t.Kind {
		case TokenNumber, TokenDice:
			output = append(output, t)

		case TokenFunc:
			stack = append(stack, t)

		case TokenComma:
			for len(stack) > 0 && stack[len(stack)-1].Kind != TokenLParen {
				output = append(output, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return nil, ErrCommaOutsideParens
			}
			if len(argc) == 0 {
				return nil, ErrCommaOutsideFunction
			}
			argc[len(argc)-1]++

		case TokenOperator:
			op := normalizeUnary(t, prev)
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.Kind != TokenOperator {
					break
				}
				p1, p2 := op.Op.precedence(), top.Op.precedence()
				pop := p1 <= p2
				if op.Op.rightAssociative() {
					pop = p1 < p2
				}
				if !pop {
					break
				}
				output = append(output, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, op)

		case TokenLParen:
			isCall := prev != nil && prev.Kind == TokenFunc
			calls = append(calls, isCall)
			if isCall {
				argc = append(argc, 0)
			}
			stack = append(stack, t)

		case TokenRParen:
			if prev != nil && prev.Kind == TokenLParen {
				return nil, ErrEmptyParens
			}
			for len(stack) > 0 && stack[len(stack)-1].Kind != TokenLParen {
				output = append(output, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return nil, ErrMismatchedParens
			}
			stack = stack[:len(stack)-1]

			isCall := calls[len(calls)-1]
			calls = calls[:len(calls)-1]
			if isCall {
				fn := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				n := argc[len(argc)-1] + 1
				argc = argc[:len(argc)-1]
				if n < 2 {
					return nil, errorf(ErrTooFewArguments, "%s() requires at least 2 arguments", fn.Func)
				}
				fn.Argc = n
				output = append(output, fn)
			}
		}
		prev = &tokens[i]
	}

	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t.Kind == TokenLParen || t.Kind == TokenRParen {
			return nil, ErrMismatchedParens
		}
		output = append(output, t)
	}
	return output, nil
}

// normalizeUnary rewrites + and - as unary operators when they cannot be
// binary: at the start, after an operator, '(' , ',' or a function name.
func normalizeUnary(t Token, prev *Token) Token {
	if t.Op != OpAdd && t.Op != OpSub {
		return t
	}
	unary := prev == nil ||
		prev.Kind == TokenOperator ||
		prev.Kind == TokenLParen ||
		prev.Kind == TokenComma ||
		prev.Kind == TokenFunc
	if !unary {
		return t
	}
	if t.Op == OpAdd {
		t.Op = OpPos
	} else {
		t.Op = OpNeg
	}
	return t
}
