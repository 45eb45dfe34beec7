// Package lexer turns preprocessed shader source into a stream of tokens.
//
// The input is normally the output of a C preprocessor, so besides the
// shading-language tokens the lexer understands line markers of the form
//
//	# 12 "shader.osl"
//	#line 12 "shader.osl"
//
// and re-bases every following position on them. That is how positions in
// the AST (and later the %filename/%line hints of the object file) refer to
// the original source file rather than to the preprocessor output.
package lexer

import "strconv"

// Position is a location in the original source.
//
// Position is a value type; it is copied into every token and node.
type Position struct {
	// Filename is the source file named by the most recent line marker,
	// or the file handed to New when no marker has been seen.
	Filename string

	// Line is 1-based. Zero means "no position".
	Line int

	// Column is 1-based and counts runes, not bytes.
	Column int

	// Offset is the 0-based byte offset into the lexer input.
	Offset int
}

// String returns "file:line:column".
func (p Position) String() string {
	return p.Filename + ":" + strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// IsValid reports whether the position carries a line number.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Before reports whether p comes before other in the lexer input.
func (p Position) Before(other Position) bool {
	return p.Offset < other.Offset
}
