// Package parser implements a recursive descent parser for shader source.
//
// PARSING STRATEGY:
//  1. Recursive descent for declarations and statements
//  2. Pratt parsing (precedence climbing) for expressions
//
// The parser keeps one token of lookahead beyond the current token. That
// is enough to tell a declaration ("color c = 1;") from a constructor
// call ("color(1, 0, 0)") and a call ("noise(P)") from a variable.
//
// ERROR HANDLING STRATEGY:
//   - Report errors but continue parsing, so one run reports every
//     syntax error it can find.
//   - Use panic/recover for error recovery at statement and declaration
//     boundaries.
//   - Return the partial tree and all errors to the caller.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/parser/ast"
	"github.com/hassan/oslc/internal/semantic/types"
)

// Error is a syntax error. Lexical errors are reported through it too.
type Error struct {
	Pos     lexer.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// bailout is the panic value used to unwind to the nearest recovery point.
type bailout struct{}

// Parser converts a stream of tokens into a syntax tree.
type Parser struct {
	lexer *lexer.Lexer

	// current is the token being examined, next is the one after it.
	current lexer.Token
	next    lexer.Token

	// previous is the last token consumed.
	previous lexer.Token

	// errors accumulates all syntax errors.
	errors []error

	// panicMode suppresses cascading errors until the parser has
	// synchronized on a statement boundary.
	panicMode bool

	// structs holds the names of struct types declared so far; they act
	// as type names in declarations.
	structs map[string]bool
}

// New creates a new parser for the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		lexer:   l,
		structs: make(map[string]bool),
	}
	// Prime current and next.
	p.next = p.scan()
	p.advance()
	return p
}

// ParseFile parses a complete translation unit.
//
// GRAMMAR:
//
//	file = (structDecl | shaderDecl)* EOF
//
// The returned tree is usable even when errors are returned, but nodes
// that failed to parse are missing from it.
func (p *Parser) ParseFile(filename string) (*ast.File, []error) {
	file := &ast.File{Filename: filename}

	for !p.isAtEnd() {
		p.parseTopLevel(file)
	}

	return file, p.errors
}

// parseTopLevel parses one top-level declaration into file.
func (p *Parser) parseTopLevel(file *ast.File) {
	start := p.current
	defer p.recoverAt(start, true)

	switch {
	case p.match(lexer.TokenStruct):
		file.Structs = append(file.Structs, p.parseStructDecl())
	case p.match(lexer.TokenShaderType):
		file.Shaders = append(file.Shaders, p.parseShaderDecl())
	case p.match(lexer.TokenSemicolon):
		// Stray semicolons between declarations are harmless.
	default:
		p.fail(fmt.Sprintf("expected shader or struct declaration, got %s", p.current.Type))
	}
}

// parseStructDecl parses a struct declaration:
//
//	struct Name { type field; ... };
func (p *Parser) parseStructDecl() *ast.StructDecl {
	structPos := p.previous.Position
	name := p.expectIdentifier("expected struct name")
	p.structs[name.Name] = true

	p.consume(lexer.TokenLeftBrace, "expected '{' before struct body")
	var fields []*ast.VarDecl
	for !p.check(lexer.TokenRightBrace) && !p.isAtEnd() {
		typ := p.parseType()
		for {
			field := &ast.VarDecl{Name: p.expectIdentifier("expected field name"), DeclType: typ}
			field.DeclType = p.parseArraySuffix(field.DeclType)
			fields = append(fields, field)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
		p.consume(lexer.TokenSemicolon, "expected ';' after field declaration")
	}
	p.consume(lexer.TokenRightBrace, "expected '}' after struct body")
	p.match(lexer.TokenSemicolon)

	return &ast.StructDecl{StructPos: structPos, Name: name, Fields: fields}
}

// parseShaderDecl parses a shader declaration:
//
//	surface name ( param, param, ... ) { body }
func (p *Parser) parseShaderDecl() *ast.ShaderDecl {
	kind := p.previous
	name := p.expectIdentifier("expected shader name")

	p.consume(lexer.TokenLeftParen, "expected '(' after shader name")
	var params []*ast.VarDecl
	if !p.check(lexer.TokenRightParen) {
		for {
			params = append(params, p.parseParam())
			// Parameters may be separated by ',' or ';'.
			if !p.match(lexer.TokenComma, lexer.TokenSemicolon) || p.check(lexer.TokenRightParen) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightParen, "expected ')' after shader parameters")

	// Shader-level metadata is accepted and dropped.
	if p.checkMetadataStart() {
		p.parseMetadata()
	}

	body := p.parseBlockStmt()

	return &ast.ShaderDecl{Kind: kind, Name: name, Params: params, Body: body}
}

// parseParam parses one shader parameter:
//
//	[output] type name [array] = init [[ metadata ]]
//
// Every parameter must have a default value.
func (p *Parser) parseParam() *ast.VarDecl {
	output := p.match(lexer.TokenOutput)
	typ := p.parseType()
	decl := &ast.VarDecl{
		Name:     p.expectIdentifier("expected parameter name"),
		DeclType: typ,
		Output:   output,
	}
	decl.DeclType = p.parseArraySuffix(decl.DeclType)

	if !p.match(lexer.TokenAssign) {
		p.fail(fmt.Sprintf("parameter %q needs a default value", decl.Name.Name))
	}
	decl.Init = p.parseInitializer()
	decl.DeclType = p.sizeFromInitializer(decl)

	if p.checkMetadataStart() {
		decl.Meta = p.parseMetadata()
	}
	return decl
}

// parseMetadata parses a metadata block:
//
//	[[ type name = expr, type name = expr ]]
func (p *Parser) parseMetadata() []*ast.VarDecl {
	p.consume(lexer.TokenLeftBracket, "expected '[['")
	p.consume(lexer.TokenLeftBracket, "expected '[['")

	var meta []*ast.VarDecl
	for !p.check(lexer.TokenRightBracket) && !p.isAtEnd() {
		typ := p.parseType()
		entry := &ast.VarDecl{Name: p.expectIdentifier("expected metadata name"), DeclType: typ}
		p.consume(lexer.TokenAssign, "expected '=' after metadata name")
		entry.Init = []ast.Expr{p.parseExpression()}
		meta = append(meta, entry)
		if !p.match(lexer.TokenComma) {
			break
		}
	}

	p.consume(lexer.TokenRightBracket, "expected ']]' after metadata")
	p.consume(lexer.TokenRightBracket, "expected ']]' after metadata")
	return meta
}

func (p *Parser) checkMetadataStart() bool {
	return p.check(lexer.TokenLeftBracket) && p.next.Type == lexer.TokenLeftBracket
}

// parseType parses a type:
//
//	type = ["closure"] typename | structname
func (p *Parser) parseType() types.TypeSpec {
	closure := p.match(lexer.TokenClosure)

	var typ types.TypeSpec
	switch {
	case p.check(lexer.TokenTypeName):
		typ, _ = types.Parse(p.current.Lexeme)
		p.advance()
	case !closure && p.check(lexer.TokenIdentifier) && p.structs[p.current.Lexeme]:
		typ = types.NewStruct(p.current.Lexeme)
		p.advance()
	default:
		p.fail(fmt.Sprintf("expected type name, got %s", p.current.Type))
	}

	if closure {
		c, err := typ.AsClosure()
		if err != nil {
			p.error(err.Error())
			return typ
		}
		typ = c
	}
	return typ
}

// parseArraySuffix parses an optional "[N]" or "[]" after a declared name.
// An unsized array gets its length from the initializer later.
func (p *Parser) parseArraySuffix(typ types.TypeSpec) types.TypeSpec {
	if !p.check(lexer.TokenLeftBracket) || p.next.Type == lexer.TokenLeftBracket {
		return typ
	}
	p.advance()

	if p.match(lexer.TokenRightBracket) {
		// Marked with -1 until sizeFromInitializer fills it in.
		typ.ArrayLen = -1
		return typ
	}

	if !p.check(lexer.TokenInt) {
		p.fail("expected array length")
	}
	n, err := strconv.ParseInt(p.current.Lexeme, 0, 32)
	if err != nil {
		p.error(fmt.Sprintf("invalid array length %s", p.current.Lexeme))
	}
	p.advance()
	p.consume(lexer.TokenRightBracket, "expected ']' after array length")

	arr, err := typ.Array(int(n))
	if err != nil {
		p.error(err.Error())
		return typ
	}
	return arr
}

// sizeFromInitializer resolves the length of an unsized array declaration.
func (p *Parser) sizeFromInitializer(decl *ast.VarDecl) types.TypeSpec {
	if decl.DeclType.ArrayLen >= 0 {
		return decl.DeclType
	}
	elem := decl.DeclType.Elem()
	arr, err := elem.Array(len(decl.Init))
	if err != nil {
		p.error(fmt.Sprintf("cannot size array %q from its initializer", decl.Name.Name))
		return elem
	}
	return arr
}

// parseInitializer parses the right side of '=' in a declaration:
//
//	init = expr | '{' expr (',' expr)* '}'
func (p *Parser) parseInitializer() []ast.Expr {
	if !p.match(lexer.TokenLeftBrace) {
		return []ast.Expr{p.parseExpression()}
	}
	var exprs []ast.Expr
	if !p.check(lexer.TokenRightBrace) {
		for {
			exprs = append(exprs, p.parseExpression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightBrace, "expected '}' after initializer list")
	return exprs
}

// parseStmt parses a statement.
//
// GRAMMAR:
//
//	stmt = block | if | while | do | for | return | break | continue
//	     | declaration | exprStmt | ';'
func (p *Parser) parseStmt() (stmt ast.Stmt) {
	start := p.current
	defer p.recoverAt(start, false)

	switch {
	case p.check(lexer.TokenLeftBrace):
		return p.parseBlockStmt()
	case p.match(lexer.TokenIf):
		return p.parseIfStmt()
	case p.match(lexer.TokenWhile):
		return p.parseWhileStmt()
	case p.match(lexer.TokenDo):
		return p.parseDoWhileStmt()
	case p.match(lexer.TokenFor):
		return p.parseForStmt()
	case p.match(lexer.TokenReturn):
		return p.parseReturnStmt()
	case p.match(lexer.TokenBreak):
		pos := p.previous.Position
		p.consume(lexer.TokenSemicolon, "expected ';' after 'break'")
		return &ast.BreakStmt{BreakPos: pos}
	case p.match(lexer.TokenContinue):
		pos := p.previous.Position
		p.consume(lexer.TokenSemicolon, "expected ';' after 'continue'")
		return &ast.ContinueStmt{ContinuePos: pos}
	case p.match(lexer.TokenSemicolon):
		return nil
	case p.atDeclaration():
		return p.parseDeclStmt()
	default:
		return p.parseExprStmt()
	}
}

// atDeclaration reports whether the current token starts a local
// variable declaration rather than an expression.
func (p *Parser) atDeclaration() bool {
	switch p.current.Type {
	case lexer.TokenClosure:
		return true
	case lexer.TokenTypeName:
		// "color(...)" is a constructor expression.
		return p.next.Type != lexer.TokenLeftParen
	case lexer.TokenIdentifier:
		return p.structs[p.current.Lexeme] && p.next.Type == lexer.TokenIdentifier
	}
	return false
}

// parseDeclStmt parses a local declaration:
//
//	type name [array] [= init] (, name [array] [= init])* ;
func (p *Parser) parseDeclStmt() *ast.DeclStmt {
	typ := p.parseType()
	stmt := &ast.DeclStmt{}
	for {
		decl := &ast.VarDecl{Name: p.expectIdentifier("expected variable name"), DeclType: typ}
		decl.DeclType = p.parseArraySuffix(decl.DeclType)
		if p.match(lexer.TokenAssign) {
			decl.Init = p.parseInitializer()
		}
		if decl.DeclType.ArrayLen < 0 {
			if !decl.HasInit() {
				p.error(fmt.Sprintf("unsized array %q needs an initializer", decl.Name.Name))
			}
			decl.DeclType = p.sizeFromInitializer(decl)
		}
		stmt.Decls = append(stmt.Decls, decl)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenSemicolon, "expected ';' after variable declaration")
	return stmt
}

// parseBlockStmt parses a block statement: { stmt* }
func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	p.consume(lexer.TokenLeftBrace, "expected '{'")
	leftBrace := p.previous

	var statements []ast.Stmt
	for !p.check(lexer.TokenRightBrace) && !p.isAtEnd() {
		if stmt := p.parseStmt(); stmt != nil {
			statements = append(statements, stmt)
		}
	}

	p.consume(lexer.TokenRightBrace, "expected '}'")
	rightBrace := p.previous

	return &ast.BlockStmt{
		LeftBrace:  leftBrace,
		Statements: statements,
		RightBrace: rightBrace,
	}
}

// parseIfStmt parses if (cond) stmt [else stmt].
func (p *Parser) parseIfStmt() *ast.IfStmt {
	ifPos := p.previous.Position

	p.consume(lexer.TokenLeftParen, "expected '(' after 'if'")
	condition := p.parseExpression()
	p.consume(lexer.TokenRightParen, "expected ')' after condition")

	stmt := &ast.IfStmt{IfPos: ifPos, Condition: condition}
	stmt.ThenBranch = p.parseBody()
	if p.match(lexer.TokenElse) {
		stmt.ElseBranch = p.parseBody()
	}
	return stmt
}

// parseWhileStmt parses while (cond) stmt.
func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	whilePos := p.previous.Position

	p.consume(lexer.TokenLeftParen, "expected '(' after 'while'")
	condition := p.parseExpression()
	p.consume(lexer.TokenRightParen, "expected ')' after condition")

	return &ast.WhileStmt{WhilePos: whilePos, Condition: condition, Body: p.parseBody()}
}

// parseDoWhileStmt parses do stmt while (cond);
func (p *Parser) parseDoWhileStmt() *ast.DoWhileStmt {
	doPos := p.previous.Position
	body := p.parseBody()

	p.consume(lexer.TokenWhile, "expected 'while' after do body")
	p.consume(lexer.TokenLeftParen, "expected '(' after 'while'")
	condition := p.parseExpression()
	p.consume(lexer.TokenRightParen, "expected ')' after condition")
	p.consume(lexer.TokenSemicolon, "expected ';' after do-while")

	return &ast.DoWhileStmt{DoPos: doPos, Body: body, Condition: condition}
}

// parseForStmt parses for (init; cond; post) stmt.
func (p *Parser) parseForStmt() *ast.ForStmt {
	stmt := &ast.ForStmt{ForPos: p.previous.Position}

	p.consume(lexer.TokenLeftParen, "expected '(' after 'for'")

	switch {
	case p.match(lexer.TokenSemicolon):
		// No init
	case p.atDeclaration():
		stmt.Init = p.parseDeclStmt()
	default:
		stmt.Init = p.parseExprStmt()
	}

	if !p.check(lexer.TokenSemicolon) {
		stmt.Condition = p.parseExpression()
	}
	p.consume(lexer.TokenSemicolon, "expected ';' after loop condition")

	if !p.check(lexer.TokenRightParen) {
		stmt.Post = p.parseExpression()
	}
	p.consume(lexer.TokenRightParen, "expected ')' after for clauses")

	stmt.Body = p.parseBody()
	return stmt
}

// parseBody parses the statement controlled by if/else/while/for/do.
// An empty statement ";" becomes an empty block.
func (p *Parser) parseBody() ast.Stmt {
	if p.check(lexer.TokenLeftBrace) {
		return p.parseBlockStmt()
	}
	if p.match(lexer.TokenSemicolon) {
		return &ast.BlockStmt{LeftBrace: p.previous, RightBrace: p.previous}
	}
	stmt := p.parseStmt()
	if stmt == nil {
		return &ast.BlockStmt{LeftBrace: p.previous, RightBrace: p.previous}
	}
	return stmt
}

// parseReturnStmt parses return [expr];
func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	stmt := &ast.ReturnStmt{ReturnPos: p.previous.Position}
	if !p.check(lexer.TokenSemicolon) {
		stmt.Value = p.parseExpression()
	}
	p.consume(lexer.TokenSemicolon, "expected ';' after return statement")
	return stmt
}

// parseExprStmt parses an expression statement: expr;
func (p *Parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpression()
	p.consume(lexer.TokenSemicolon, "expected ';' after expression")
	return &ast.ExprStmt{Expression: expr}
}

// Expression parsing using Pratt parsing (precedence climbing)
//
// REFERENCE: "Top Down Operator Precedence" by Vaughan Pratt (1973)

// parseExpression parses an expression with any precedence.
func (p *Parser) parseExpression() ast.Expr {
	return p.parsePrecedence(PrecAssignment)
}

// parsePrecedence parses an expression with at least the given precedence.
func (p *Parser) parsePrecedence(precedence Precedence) ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		p.fail(fmt.Sprintf("expected expression, got %s", p.current.Type))
	}

	// "[[" opens parameter metadata, never an index.
	for precedence <= getPrecedence(p.current.Type) && !p.checkMetadataStart() {
		left = p.parseInfix(left)
	}

	return left
}

// parsePrefix parses an expression that starts with the current token.
//
// PREFIX EXPRESSIONS:
//   - Literals: 42, 0.5, "name"
//   - Identifiers and calls: Kd, noise(P)
//   - Constructors: color(1, 0, 0)
//   - Unary operators: -x, !flag, ++i
//   - Grouping: (expr)
func (p *Parser) parsePrefix() ast.Expr {
	switch p.current.Type {
	case lexer.TokenInt:
		return p.parseIntLiteral()
	case lexer.TokenFloat:
		return p.parseFloatLiteral()
	case lexer.TokenString:
		token := p.current
		p.advance()
		return ast.NewStringLiteral(token, unquote(token.Lexeme))

	case lexer.TokenIdentifier:
		ident := p.expectIdentifier("expected identifier")
		if p.check(lexer.TokenLeftParen) {
			return &ast.CallExpr{Callee: ident, Args: p.parseArguments()}
		}
		return ident

	case lexer.TokenTypeName:
		token := p.current
		p.advance()
		if !p.check(lexer.TokenLeftParen) {
			p.fail(fmt.Sprintf("unexpected type name %q in expression", token.Lexeme))
		}
		return &ast.ConstructorExpr{TypeName: token, Args: p.parseArguments()}

	case lexer.TokenLeftParen:
		leftParen := p.current
		p.advance()
		expr := p.parseExpression()
		p.consume(lexer.TokenRightParen, "expected ')' after expression")
		return &ast.GroupingExpr{LeftParen: leftParen, Expression: expr}

	case lexer.TokenMinus, lexer.TokenNot, lexer.TokenPlusPlus, lexer.TokenMinusMinus:
		return p.parseUnary()

	default:
		return nil
	}
}

// parseInfix parses an operator that follows a complete left operand.
func (p *Parser) parseInfix(left ast.Expr) ast.Expr {
	switch p.current.Type {
	case lexer.TokenPlus, lexer.TokenMinus, lexer.TokenStar, lexer.TokenSlash,
		lexer.TokenPercent,
		lexer.TokenEqual, lexer.TokenNotEqual,
		lexer.TokenLess, lexer.TokenLessEqual,
		lexer.TokenGreater, lexer.TokenGreaterEqual:
		operator := p.current
		p.advance()
		right := p.parsePrecedence(getPrecedence(operator.Type) + 1)
		return &ast.BinaryExpr{Left: left, Operator: operator, Right: right}

	case lexer.TokenAnd, lexer.TokenOr:
		operator := p.current
		p.advance()
		right := p.parsePrecedence(getPrecedence(operator.Type) + 1)
		return &ast.LogicalExpr{Left: left, Operator: operator, Right: right}

	case lexer.TokenAssign, lexer.TokenPlusEq, lexer.TokenMinusEq,
		lexer.TokenStarEq, lexer.TokenSlashEq:
		operator := p.current
		p.advance()
		// Assignment is right-associative.
		right := p.parsePrecedence(PrecAssignment)
		return &ast.AssignmentExpr{Target: left, Operator: operator, Value: right}

	case lexer.TokenLeftBracket:
		leftBracket := p.current
		p.advance()
		index := p.parseExpression()
		p.consume(lexer.TokenRightBracket, "expected ']' after index")
		return &ast.IndexExpr{Object: left, LeftBracket: leftBracket, Index: index}

	case lexer.TokenDot:
		p.advance()
		member := p.expectIdentifier("expected field name after '.'")
		return &ast.MemberExpr{Object: left, Member: member}

	case lexer.TokenPlusPlus, lexer.TokenMinusMinus:
		operator := p.current
		p.advance()
		return &ast.UnaryExpr{Operator: operator, Operand: left, IsPostfix: true}

	default:
		return left
	}
}

// parseArguments parses "( expr, expr, ... )".
func (p *Parser) parseArguments() []ast.Expr {
	p.consume(lexer.TokenLeftParen, "expected '('")
	var args []ast.Expr
	if !p.check(lexer.TokenRightParen) {
		for {
			args = append(args, p.parseExpression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightParen, "expected ')' after arguments")
	return args
}

// parseUnary parses a prefix operator. A minus directly in front of a
// numeric literal is folded into the literal, so "-1" stays a literal.
func (p *Parser) parseUnary() ast.Expr {
	operator := p.current
	p.advance()

	operand := p.parsePrecedence(PrecUnary)

	if lit, ok := operand.(*ast.LiteralExpr); ok && operator.Type == lexer.TokenMinus &&
		lit.Kind != ast.StringLiteral {
		lit.Negate()
		lit.Token.Lexeme = "-" + lit.Token.Lexeme
		lit.Token.Position = operator.Position
		return lit
	}

	return &ast.UnaryExpr{Operator: operator, Operand: operand}
}

// Literal parsing

func (p *Parser) parseIntLiteral() ast.Expr {
	token := p.current
	p.advance()

	value, err := strconv.ParseInt(token.Lexeme, 0, 64)
	if err != nil {
		p.error(fmt.Sprintf("invalid integer literal: %s", token.Lexeme))
	}
	return ast.NewIntLiteral(token, value)
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	token := p.current
	p.advance()

	value, err := strconv.ParseFloat(token.Lexeme, 64)
	if err != nil {
		p.error(fmt.Sprintf("invalid float literal: %s", token.Lexeme))
	}
	return ast.NewFloatLiteral(token, value)
}

// unquote strips the quotes of a string lexeme and resolves escapes.
func unquote(lexeme string) string {
	if len(lexeme) < 2 {
		return ""
	}
	s := lexeme[1 : len(lexeme)-1]

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Helper methods

// scan reads one token from the lexer, recording lexical errors.
func (p *Parser) scan() lexer.Token {
	token, err := p.lexer.NextToken()
	if err != nil {
		var lexErr *lexer.Error
		if errors.As(err, &lexErr) {
			p.errors = append(p.errors, &Error{Pos: lexErr.Pos, Message: lexErr.Message})
		} else {
			p.errors = append(p.errors, &Error{Pos: token.Position, Message: err.Error()})
		}
		// The parser's own complaint about the bad token would repeat it.
		p.panicMode = true
	}
	return token
}

func (p *Parser) advance() {
	p.previous = p.current
	p.current = p.next
	if p.current.Type != lexer.TokenEOF {
		p.next = p.scan()
	}
}

func (p *Parser) check(tokenType lexer.TokenType) bool {
	return p.current.Type == tokenType
}

func (p *Parser) match(tokenTypes ...lexer.TokenType) bool {
	for _, tokenType := range tokenTypes {
		if p.check(tokenType) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(tokenType lexer.TokenType, message string) {
	if p.check(tokenType) {
		p.advance()
		return
	}
	p.fail(message)
}

func (p *Parser) expectIdentifier(message string) *ast.IdentifierExpr {
	if !p.check(lexer.TokenIdentifier) {
		p.fail(message)
	}
	token := p.current
	p.advance()
	return &ast.IdentifierExpr{Token: token, Name: token.Lexeme}
}

func (p *Parser) isAtEnd() bool {
	return p.current.Type == lexer.TokenEOF
}

// error records a syntax error at the current token.
func (p *Parser) error(message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.errors = append(p.errors, &Error{Pos: p.current.Position, Message: message})
}

// fail records an error and unwinds to the enclosing statement or
// declaration.
func (p *Parser) fail(message string) {
	p.error(message)
	panic(bailout{})
}

// recoverAt is deferred by parseStmt and parseTopLevel. It stops a
// bailout, makes sure at least one token was consumed since start, and
// skips to the next statement (or top-level declaration) boundary. Other
// panics propagate.
func (p *Parser) recoverAt(start lexer.Token, topLevel bool) {
	r := recover()
	if r == nil {
		return
	}
	if _, ok := r.(bailout); !ok {
		panic(r)
	}
	if p.current.Position.Offset == start.Position.Offset && !p.isAtEnd() {
		p.advance()
	}
	if topLevel {
		p.synchronizeTopLevel()
		return
	}
	p.synchronize()
}

// synchronize skips tokens until it reaches a statement boundary.
func (p *Parser) synchronize() {
	p.panicMode = false

	for !p.isAtEnd() {
		if p.previous.Type == lexer.TokenSemicolon {
			return
		}

		switch p.current.Type {
		case lexer.TokenIf, lexer.TokenWhile, lexer.TokenDo, lexer.TokenFor,
			lexer.TokenReturn, lexer.TokenBreak, lexer.TokenContinue,
			lexer.TokenStruct, lexer.TokenShaderType, lexer.TokenRightBrace:
			return
		}

		p.advance()
	}
}

// synchronizeTopLevel skips tokens until the next struct or shader
// declaration.
func (p *Parser) synchronizeTopLevel() {
	p.panicMode = false
	for !p.isAtEnd() && !p.check(lexer.TokenStruct) && !p.check(lexer.TokenShaderType) {
		p.advance()
	}
}
