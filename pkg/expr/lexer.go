package expr

import (
	"strconv"
	"unicode"
)

// Lexer tokenizes a formula string.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// next returns the next token from the input.
func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	ch := l.input[l.pos]

	// Number literals
	if ch >= '0' && ch <= '9' {
		return l.readNumber()
	}

	// Single-character operators
	switch ch {
	case '+':
		l.pos++
		return Token{Type: TokenPlus, Value: "+", Pos: l.pos - 1}, nil
	case '-':
		l.pos++
		return Token{Type: TokenMinus, Value: "-", Pos: l.pos - 1}, nil
	case '*':
		l.pos++
		return Token{Type: TokenStar, Value: "*", Pos: l.pos - 1}, nil
	case '/':
		l.pos++
		return Token{Type: TokenSlash, Value: "/", Pos: l.pos - 1}, nil
	case '^':
		l.pos++
		return Token{Type: TokenCaret, Value: "^", Pos: l.pos - 1}, nil
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: l.pos - 1}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: l.pos - 1}, nil
	case ',':
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: l.pos - 1}, nil
	}

	// Identifiers
	if isIdentStart(ch) {
		return l.readIdentifier(), nil
	}

	return Token{}, NewSyntaxError("unexpected character %q at position %d", string(ch), l.pos)
}

// readNumber reads an integer or float literal.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	isFloat := false

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch >= '0' && ch <= '9' {
			l.pos++
		} else if ch == '.' && !isFloat {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] >= '0' && l.input[l.pos+1] <= '9' {
				isFloat = true
				l.pos++
			} else {
				break
			}
		} else if ch == 'e' || ch == 'E' {
			isFloat = true
			l.pos++
			if l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
				l.pos++
			}
		} else {
			break
		}
	}

	raw := l.input[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Token{}, NewSyntaxError("invalid float %q at position %d", raw, start)
		}
		return Token{Type: TokenFloat, Value: raw, FloatVal: f, Pos: start}, nil
	}

	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Token{}, NewSyntaxError("invalid integer %q at position %d", raw, start)
	}
	return Token{Type: TokenInt, Value: raw, IntVal: i, Pos: start}, nil
}

// readIdentifier reads a variable, constant, or function name.
func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: start}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
