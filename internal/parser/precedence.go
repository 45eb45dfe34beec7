package parser

import (
	"github.com/hassan/oslc/internal/lexer"
)

// Precedence represents operator precedence levels.
//
// PRECEDENCE RULES (from lowest to highest):
//  1. Assignment (=, +=, -=, *=, /=)
//  2. Logical OR (||)
//  3. Logical AND (&&)
//  4. Equality (==, !=)
//  5. Comparison (<, <=, >, >=)
//  6. Addition/Subtraction (+, -)
//  7. Multiplication/Division (*, /, %)
//  8. Unary (!, -, ++, --)
//  9. Postfix (a[i], s.f, i++, i--)
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment // =, +=, -=, *=, /=
	PrecOr         // ||
	PrecAnd        // &&
	PrecEquality   // ==, !=
	PrecComparison // <, <=, >, >=
	PrecTerm       // +, -
	PrecFactor     // *, /, %
	PrecUnary      // !, -, ++, --
	PrecCall       // [], ., postfix ++ and --
	PrecPrimary    // literals, identifiers, grouping
)

// getPrecedence returns the infix precedence of a token type. Tokens that
// cannot continue an expression return PrecNone, which stops the Pratt loop.
//
// Function calls are not listed: a call is recognized as a prefix form
// (identifier followed by '('), since only built-in functions can be called.
func getPrecedence(tokenType lexer.TokenType) Precedence {
	switch tokenType {
	case lexer.TokenAssign,
		lexer.TokenPlusEq,
		lexer.TokenMinusEq,
		lexer.TokenStarEq,
		lexer.TokenSlashEq:
		return PrecAssignment

	case lexer.TokenOr:
		return PrecOr

	case lexer.TokenAnd:
		return PrecAnd

	case lexer.TokenEqual, lexer.TokenNotEqual:
		return PrecEquality

	case lexer.TokenLess,
		lexer.TokenLessEqual,
		lexer.TokenGreater,
		lexer.TokenGreaterEqual:
		return PrecComparison

	case lexer.TokenPlus, lexer.TokenMinus:
		return PrecTerm

	case lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent:
		return PrecFactor

	case lexer.TokenLeftBracket, lexer.TokenDot,
		lexer.TokenPlusPlus, lexer.TokenMinusMinus:
		return PrecCall

	default:
		return PrecNone
	}
}

// isRightAssociative returns true if the operator is right-associative.
//
// Only assignment is: a = b = c means a = (b = c).
func isRightAssociative(tokenType lexer.TokenType) bool {
	return tokenType.IsAssignOp()
}
