package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer scans shading-language source held entirely in memory.
type Lexer struct {
	source string

	// filename is what positions report. Line markers replace it.
	filename string

	start   int
	current int

	// line is the current 1-based line; lineStart is the byte offset where
	// it began. Columns are computed from the two on demand.
	line      int
	lineStart int

	// atLineStart is true until a non-blank character is seen on the
	// current line; '#' directives are only recognized there.
	atLineStart bool
}

// New creates a Lexer for source. filename is used for positions until the
// first line marker.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:      source,
		filename:    filename,
		line:        1,
		atLineStart: true,
	}
}

// NextToken returns the next token. Lexical errors come back as a
// TokenInvalid token together with a non-nil error, so the parser can report
// the problem and keep going.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return l.makeToken(TokenInvalid, ""), err
	}

	l.start = l.current
	if l.isAtEnd() {
		return l.makeToken(TokenEOF, ""), nil
	}
	l.atLineStart = false

	ch := l.advance()

	if isLetter(ch) {
		return l.scanIdentifier(), nil
	}
	if isDigit(ch) || (ch == '.' && isDigit(l.peek())) {
		return l.scanNumber(), nil
	}

	switch ch {
	case '(':
		return l.makeToken(TokenLeftParen, "("), nil
	case ')':
		return l.makeToken(TokenRightParen, ")"), nil
	case '{':
		return l.makeToken(TokenLeftBrace, "{"), nil
	case '}':
		return l.makeToken(TokenRightBrace, "}"), nil
	case '[':
		return l.makeToken(TokenLeftBracket, "["), nil
	case ']':
		return l.makeToken(TokenRightBracket, "]"), nil
	case ';':
		return l.makeToken(TokenSemicolon, ";"), nil
	case ',':
		return l.makeToken(TokenComma, ","), nil
	case '.':
		return l.makeToken(TokenDot, "."), nil
	case '%':
		return l.makeToken(TokenPercent, "%"), nil

	case '+':
		if l.match('+') {
			return l.makeToken(TokenPlusPlus, "++"), nil
		} else if l.match('=') {
			return l.makeToken(TokenPlusEq, "+="), nil
		}
		return l.makeToken(TokenPlus, "+"), nil
	case '-':
		if l.match('-') {
			return l.makeToken(TokenMinusMinus, "--"), nil
		} else if l.match('=') {
			return l.makeToken(TokenMinusEq, "-="), nil
		}
		return l.makeToken(TokenMinus, "-"), nil
	case '*':
		if l.match('=') {
			return l.makeToken(TokenStarEq, "*="), nil
		}
		return l.makeToken(TokenStar, "*"), nil
	case '/':
		if l.match('=') {
			return l.makeToken(TokenSlashEq, "/="), nil
		}
		return l.makeToken(TokenSlash, "/"), nil

	case '&':
		if l.match('&') {
			return l.makeToken(TokenAnd, "&&"), nil
		}
	case '|':
		if l.match('|') {
			return l.makeToken(TokenOr, "||"), nil
		}
	case '=':
		if l.match('=') {
			return l.makeToken(TokenEqual, "=="), nil
		}
		return l.makeToken(TokenAssign, "="), nil
	case '!':
		if l.match('=') {
			return l.makeToken(TokenNotEqual, "!="), nil
		}
		return l.makeToken(TokenNot, "!"), nil
	case '<':
		if l.match('=') {
			return l.makeToken(TokenLessEqual, "<="), nil
		}
		return l.makeToken(TokenLess, "<"), nil
	case '>':
		if l.match('=') {
			return l.makeToken(TokenGreaterEqual, ">="), nil
		}
		return l.makeToken(TokenGreater, ">"), nil

	case '"':
		return l.scanString()
	}

	text := l.source[l.start:l.current]
	return l.makeToken(TokenInvalid, text),
		l.error(fmt.Sprintf("unexpected character %q", text))
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch, size := utf8.DecodeRuneInString(l.source[l.current:])
	l.current += size
	return ch
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.source[l.current:])
	return ch
}

func (l *Lexer) peekNext() rune {
	if l.isAtEnd() {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.source[l.current:])
	if l.current+size >= len(l.source) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.source[l.current+size:])
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.peek() != expected || l.isAtEnd() {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func (l *Lexer) newline() {
	l.line++
	l.lineStart = l.current
	l.atLineStart = true
}

// skipWhitespace skips blanks, comments and preprocessor directives.
func (l *Lexer) skipWhitespace() error {
	for !l.isAtEnd() {
		switch ch := l.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v':
			l.advance()
		case ch == '\n':
			l.advance()
			l.newline()
		case ch == '#' && l.atLineStart:
			l.directive()
		case ch == '/' && l.peekNext() == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekNext() == '*':
			l.start = l.current
			l.advance()
			l.advance()
			closed := false
			for !l.isAtEnd() {
				if l.peek() == '*' && l.peekNext() == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				if l.advance() == '\n' {
					l.newline()
					l.atLineStart = false
				}
			}
			if !closed {
				return l.error("unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

// directive consumes a '#' line. Line markers ("# N" or "#line N",
// optionally followed by a quoted file name) re-base positions; every other
// directive is ignored.
func (l *Lexer) directive() {
	begin := l.current
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
	text := strings.TrimSpace(l.source[begin+1 : l.current])
	text = strings.TrimSpace(strings.TrimPrefix(text, "line"))

	digits := 0
	for digits < len(text) && text[digits] >= '0' && text[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return
	}
	n, err := strconv.Atoi(text[:digits])
	if err != nil {
		return
	}
	rest := strings.TrimSpace(text[digits:])
	if strings.HasPrefix(rest, "\"") {
		if end := strings.IndexByte(rest[1:], '"'); end >= 0 {
			l.filename = rest[1 : end+1]
		}
	}
	// The newline that ends the directive bumps the counter to n.
	l.line = n - 1
}

func (l *Lexer) scanIdentifier() Token {
	for isLetter(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	text := l.source[l.start:l.current]
	return l.makeToken(LookupKeyword(text), text)
}

// scanNumber scans an int or float literal.
//
// FORMATS: 42, 0x1F (int); 3.14, .5, 1., 1e10, 2.5e-3 (float)
func (l *Lexer) scanNumber() Token {
	isFloat := l.source[l.start] == '.'

	if !isFloat && l.source[l.start] == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
		return l.makeToken(TokenInt, l.source[l.start:l.current])
	}

	for isDigit(l.peek()) {
		l.advance()
	}
	if !isFloat && l.peek() == '.' {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		saved := l.current
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !isDigit(l.peek()) {
			l.current = saved
		} else {
			isFloat = true
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	text := l.source[l.start:l.current]
	if isFloat {
		return l.makeToken(TokenFloat, text)
	}
	return l.makeToken(TokenInt, text)
}

func (l *Lexer) scanString() (Token, error) {
	for !l.isAtEnd() {
		switch l.peek() {
		case '"':
			l.advance()
			return l.makeToken(TokenString, l.source[l.start:l.current]), nil
		case '\n':
			return l.makeToken(TokenInvalid, ""), l.error("unterminated string literal")
		case '\\':
			l.advance()
			l.advance()
		default:
			l.advance()
		}
	}
	return l.makeToken(TokenInvalid, ""), l.error("unterminated string literal")
}

func (l *Lexer) makeToken(tokenType TokenType, lexeme string) Token {
	return Token{
		Type:     tokenType,
		Lexeme:   lexeme,
		Position: l.currentPosition(),
		Length:   l.current - l.start,
	}
}

func (l *Lexer) currentPosition() Position {
	column := utf8.RuneCountInString(l.source[l.lineStart:max(l.start, l.lineStart)]) + 1
	return Position{
		Filename: l.filename,
		Line:     l.line,
		Column:   column,
		Offset:   l.start,
	}
}

// error returns a *Error located at the start of the current token.
func (l *Lexer) error(message string) error {
	return &Error{Pos: l.currentPosition(), Message: message}
}

// Error is a lexical error.
type Error struct {
	Pos     Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
