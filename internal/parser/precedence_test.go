package parser

import (
	"testing"

	"github.com/hassan/oslc/internal/lexer"
)

func TestGetPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		token    lexer.TokenType
		expected Precedence
	}{
		// Assignment (lowest)
		{"assign", lexer.TokenAssign, PrecAssignment},
		{"plus equals", lexer.TokenPlusEq, PrecAssignment},
		{"slash equals", lexer.TokenSlashEq, PrecAssignment},

		{"logical or", lexer.TokenOr, PrecOr},
		{"logical and", lexer.TokenAnd, PrecAnd},

		{"equal", lexer.TokenEqual, PrecEquality},
		{"not equal", lexer.TokenNotEqual, PrecEquality},

		{"less than", lexer.TokenLess, PrecComparison},
		{"greater equal", lexer.TokenGreaterEqual, PrecComparison},

		{"plus", lexer.TokenPlus, PrecTerm},
		{"minus", lexer.TokenMinus, PrecTerm},

		{"star", lexer.TokenStar, PrecFactor},
		{"slash", lexer.TokenSlash, PrecFactor},
		{"percent", lexer.TokenPercent, PrecFactor},

		// Postfix (highest)
		{"left bracket", lexer.TokenLeftBracket, PrecCall},
		{"dot", lexer.TokenDot, PrecCall},
		{"increment", lexer.TokenPlusPlus, PrecCall},

		// Non-operators
		{"identifier", lexer.TokenIdentifier, PrecNone},
		{"int", lexer.TokenInt, PrecNone},
		{"semicolon", lexer.TokenSemicolon, PrecNone},
		{"left paren", lexer.TokenLeftParen, PrecNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getPrecedence(tt.token)
			if result != tt.expected {
				t.Errorf("getPrecedence(%v) = %v, want %v", tt.token, result, tt.expected)
			}
		})
	}
}

func TestPrecedenceOrdering(t *testing.T) {
	ordered := []Precedence{
		PrecNone, PrecAssignment, PrecOr, PrecAnd, PrecEquality,
		PrecComparison, PrecTerm, PrecFactor, PrecUnary, PrecCall, PrecPrimary,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("precedence %d should be lower than %d", ordered[i-1], ordered[i])
		}
	}
}

func TestIsRightAssociative(t *testing.T) {
	tests := []struct {
		token    lexer.TokenType
		expected bool
	}{
		{lexer.TokenAssign, true},
		{lexer.TokenStarEq, true},
		{lexer.TokenPlus, false},
		{lexer.TokenAnd, false},
	}

	for _, tt := range tests {
		t.Run(tt.token.String(), func(t *testing.T) {
			if result := isRightAssociative(tt.token); result != tt.expected {
				t.Errorf("isRightAssociative(%v) = %v, want %v", tt.token, result, tt.expected)
			}
		})
	}
}
