// Package expr implements the formula language: the expression tree
// model, the lexer and parser that produce trees from formula text, and
// the interpreting executor that reduces a tree to a number.
package expr

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Literals
	TokenInt   TokenType = iota // integer literal
	TokenFloat                  // float literal

	// Identifiers
	TokenIdent // identifier (variable, constant, or function name)

	// Arithmetic
	TokenPlus  // +
	TokenMinus // -
	TokenStar  // *
	TokenSlash // /
	TokenCaret // ^

	// Punctuation
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,

	// Special
	TokenEOF // end of expression
)

// Token represents a single lexical token.
type Token struct {
	Type     TokenType
	Value    string  // raw string value
	IntVal   int64   // parsed int (for TokenInt)
	FloatVal float64 // parsed float (for TokenFloat)
	Pos      int     // position in source
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenInt:
		return "INT"
	case TokenFloat:
		return "FLOAT"
	case TokenIdent:
		return "IDENT"
	case TokenPlus:
		return "PLUS"
	case TokenMinus:
		return "MINUS"
	case TokenStar:
		return "STAR"
	case TokenSlash:
		return "SLASH"
	case TokenCaret:
		return "CARET"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenComma:
		return "COMMA"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}
