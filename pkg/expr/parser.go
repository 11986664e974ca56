package expr

// MaxFormulaLength is the maximum allowed length for a single formula.
const MaxFormulaLength = 4096

// Parser is a recursive descent parser for formulas.
type Parser struct {
	tokens []Token
	pos    int
	consts ConstantRegistry
}

// Parse parses a complete formula string. Every identifier that is not
// a function call becomes a Variable leaf.
func Parse(input string) (Operation, error) {
	return ParseWithConstants(input, nil)
}

// ParseWithConstants parses a formula string, classifying identifiers
// registered in consts as Constant leaves instead of Variables. A nil
// registry behaves like Parse.
func ParseWithConstants(input string, consts ConstantRegistry) (Operation, error) {
	if len(input) > MaxFormulaLength {
		return nil, NewSyntaxError("formula exceeds maximum length of %d characters", MaxFormulaLength)
	}

	lexer := NewLexer(input)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}

	p := &Parser{tokens: tokens, consts: consts}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.current().Type != TokenEOF {
		return nil, NewSyntaxError("unexpected token %s at position %d", p.current().Type, p.current().Pos)
	}

	return node, nil
}

// current returns the current token.
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without consuming it.
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

// advance consumes the current token and returns it.
func (p *Parser) advance() Token {
	tok := p.current()
	p.pos++
	return tok
}

// expect consumes a token of the expected type or returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, NewSyntaxError("expected %s, got %s at position %d", tt, tok.Type, tok.Pos)
	}
	p.advance()
	return tok, nil
}

// parseExpression is the entry point.
// Precedence (low to high):
//
//	+, -
//	*, /
//	unary -
//	^ (right-associative)
//	literals, identifiers, calls, parentheses
func (p *Parser) parseExpression() (Operation, error) {
	return p.parseAdditive()
}

func (p *Parser) parseAdditive() (Operation, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().Type {
		case TokenPlus:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &Addition{Arg1: left, Arg2: right}
		case TokenMinus:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &Subtraction{Arg1: left, Arg2: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseMultiplicative() (Operation, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().Type {
		case TokenStar:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &Multiplication{Arg1: left, Arg2: right}
		case TokenSlash:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &Division{Dividend: left, Divisor: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (Operation, error) {
	if p.current().Type == TokenMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Negative literals fold directly instead of producing a
		// subtraction wrapper.
		switch c := operand.(type) {
		case *IntegerConstant:
			return &IntegerConstant{Value: -c.Value}, nil
		case *FloatingPointConstant:
			return &FloatingPointConstant{Value: -c.Value}, nil
		}
		return &Subtraction{Arg1: &IntegerConstant{Value: 0}, Arg2: operand}, nil
	}
	return p.parsePower()
}

// parsePower handles exponentiation. The right operand re-enters at
// unary level so that a ^ -b and right-associative chains parse.
func (p *Parser) parsePower() (Operation, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.current().Type == TokenCaret {
		p.advance()
		exponent, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Exponentiation{Base: base, Exponent: exponent}, nil
	}
	return base, nil
}

func (p *Parser) parsePrimary() (Operation, error) {
	tok := p.current()

	switch tok.Type {
	case TokenInt:
		p.advance()
		return &IntegerConstant{Value: tok.IntVal}, nil

	case TokenFloat:
		p.advance()
		return &FloatingPointConstant{Value: tok.FloatVal}, nil

	case TokenLParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case TokenIdent:
		if p.peek().Type == TokenLParen {
			return p.parseCall()
		}
		p.advance()
		if p.consts != nil && p.consts.HasConstant(tok.Value) {
			return &Constant{Name: tok.Value}, nil
		}
		return &Variable{Name: tok.Value}, nil

	default:
		return nil, NewSyntaxError("unexpected token %s at position %d", tok.Type, tok.Pos)
	}
}

// parseCall parses a function call: name(arg, arg, ...).
func (p *Parser) parseCall() (Operation, error) {
	name := p.advance().Value
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var args []Operation
	if p.current().Type != TokenRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}

	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &Function{Name: name, Arguments: args}, nil
}
