package lexer

import "fmt"

// TokenType is the kind of a token.
type TokenType int

// Token types, grouped as: special, literals, identifiers and keywords,
// operators, delimiters.
const (
	TokenEOF TokenType = iota
	TokenInvalid

	// Literals. The lexer decides int vs float from the spelling:
	// "1" is an int, "1.0", "1." and "1e3" are floats.
	TokenInt
	TokenFloat
	TokenString

	TokenIdentifier

	// TokenTypeName covers the built-in type keywords (int, float, string,
	// point, vector, normal, color, matrix, void). The keyword itself is in
	// Token.Lexeme.
	TokenTypeName

	// TokenShaderType covers surface, displacement, light, volume and the
	// generic "shader".
	TokenShaderType

	// Keywords
	TokenIf
	TokenElse
	TokenFor
	TokenWhile
	TokenDo
	TokenBreak
	TokenContinue
	TokenReturn
	TokenStruct
	TokenOutput
	TokenClosure

	// Operators - arithmetic
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %

	// Operators - comparison
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Operators - logical
	TokenAnd // &&
	TokenOr  // ||
	TokenNot // !

	// Operators - assignment
	TokenAssign  // =
	TokenPlusEq  // +=
	TokenMinusEq // -=
	TokenStarEq  // *=
	TokenSlashEq // /=

	// Operators - increment/decrement
	TokenPlusPlus   // ++
	TokenMinusMinus // --

	// Delimiters
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenSemicolon    // ;
	TokenComma        // ,
	TokenDot          // .
)

// Token is a single lexical token.
type Token struct {
	Type TokenType

	// Lexeme is the source text of the token. For string literals it still
	// includes the quotes; the parser unescapes it.
	Lexeme string

	Position Position

	// Length is the length of the token in bytes.
	Length int
}

// String returns a debugging representation such as
// "IDENTIFIER(Kd) at test.osl:3:9".
func (t Token) String() string {
	switch t.Type {
	case TokenIdentifier, TokenInt, TokenFloat, TokenString, TokenTypeName,
		TokenShaderType, TokenInvalid:
		return fmt.Sprintf("%s(%s) at %s", t.Type, t.Lexeme, t.Position)
	default:
		return fmt.Sprintf("%s at %s", t.Type, t.Position)
	}
}

// String returns the name of the token type.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return "UNKNOWN"
}

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenInvalid:      "INVALID",
	TokenInt:          "INT",
	TokenFloat:        "FLOAT",
	TokenString:       "STRING",
	TokenIdentifier:   "IDENTIFIER",
	TokenTypeName:     "TYPENAME",
	TokenShaderType:   "SHADERTYPE",
	TokenIf:           "IF",
	TokenElse:         "ELSE",
	TokenFor:          "FOR",
	TokenWhile:        "WHILE",
	TokenDo:           "DO",
	TokenBreak:        "BREAK",
	TokenContinue:     "CONTINUE",
	TokenReturn:       "RETURN",
	TokenStruct:       "STRUCT",
	TokenOutput:       "OUTPUT",
	TokenClosure:      "CLOSURE",
	TokenPlus:         "PLUS",
	TokenMinus:        "MINUS",
	TokenStar:         "STAR",
	TokenSlash:        "SLASH",
	TokenPercent:      "PERCENT",
	TokenEqual:        "EQUAL",
	TokenNotEqual:     "NOT_EQUAL",
	TokenLess:         "LESS",
	TokenLessEqual:    "LESS_EQUAL",
	TokenGreater:      "GREATER",
	TokenGreaterEqual: "GREATER_EQUAL",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenAssign:       "ASSIGN",
	TokenPlusEq:       "PLUS_EQ",
	TokenMinusEq:      "MINUS_EQ",
	TokenStarEq:       "STAR_EQ",
	TokenSlashEq:      "SLASH_EQ",
	TokenPlusPlus:     "PLUS_PLUS",
	TokenMinusMinus:   "MINUS_MINUS",
	TokenLeftParen:    "LPAREN",
	TokenRightParen:   "RPAREN",
	TokenLeftBrace:    "LBRACE",
	TokenRightBrace:   "RBRACE",
	TokenLeftBracket:  "LBRACKET",
	TokenRightBracket: "RBRACKET",
	TokenSemicolon:    "SEMICOLON",
	TokenComma:        "COMMA",
	TokenDot:          "DOT",
}

var keywords = map[string]TokenType{
	"if":           TokenIf,
	"else":         TokenElse,
	"for":          TokenFor,
	"while":        TokenWhile,
	"do":           TokenDo,
	"break":        TokenBreak,
	"continue":     TokenContinue,
	"return":       TokenReturn,
	"struct":       TokenStruct,
	"output":       TokenOutput,
	"closure":      TokenClosure,
	"int":          TokenTypeName,
	"float":        TokenTypeName,
	"string":       TokenTypeName,
	"point":        TokenTypeName,
	"vector":       TokenTypeName,
	"normal":       TokenTypeName,
	"color":        TokenTypeName,
	"matrix":       TokenTypeName,
	"void":         TokenTypeName,
	"surface":      TokenShaderType,
	"displacement": TokenShaderType,
	"light":        TokenShaderType,
	"volume":       TokenShaderType,
	"shader":       TokenShaderType,
}

// LookupKeyword returns the keyword token type for identifier, or
// TokenIdentifier if it is not a keyword.
func LookupKeyword(identifier string) TokenType {
	if tokenType, ok := keywords[identifier]; ok {
		return tokenType
	}
	return TokenIdentifier
}

// IsAssignOp reports whether tt is "=" or a compound assignment.
func (tt TokenType) IsAssignOp() bool {
	return tt >= TokenAssign && tt <= TokenSlashEq
}
