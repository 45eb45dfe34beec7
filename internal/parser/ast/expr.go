package ast

import (
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/symtab"
)

// Expression nodes represent values and computations.

// LiteralKind distinguishes the three literal forms.
type LiteralKind int

const (
	IntLiteral LiteralKind = iota
	FloatLiteral
	StringLiteral
)

// LiteralExpr is an int, float or string literal: 42, 0.5, "rgb".
//
// The value is reached through the typed accessors. Int and float literals
// answer both IntVal and FloatVal so that a float default written as "1"
// can be encoded either way.
type LiteralExpr struct {
	typed
	Token lexer.Token
	Kind  LiteralKind

	intVal   int64
	floatVal float64
	strVal   string
}

// NewIntLiteral returns an int literal node.
func NewIntLiteral(tok lexer.Token, v int64) *LiteralExpr {
	return &LiteralExpr{Token: tok, Kind: IntLiteral, intVal: v, floatVal: float64(v)}
}

// NewFloatLiteral returns a float literal node.
func NewFloatLiteral(tok lexer.Token, v float64) *LiteralExpr {
	return &LiteralExpr{Token: tok, Kind: FloatLiteral, intVal: int64(v), floatVal: v}
}

// NewStringLiteral returns a string literal node holding the unescaped text.
func NewStringLiteral(tok lexer.Token, v string) *LiteralExpr {
	return &LiteralExpr{Token: tok, Kind: StringLiteral, strVal: v}
}

func (l *LiteralExpr) IntVal() int64      { return l.intVal }
func (l *LiteralExpr) FloatVal() float64  { return l.floatVal }
func (l *LiteralExpr) StrVal() string     { return l.strVal }
func (l *LiteralExpr) Pos() lexer.Position { return l.Token.Position }
func (l *LiteralExpr) exprNode()          {}
func (l *LiteralExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitLiteralExpr(l)
}

// Negate flips the sign of a numeric literal. The parser folds "-1" into
// a single literal so that negative defaults stay literal.
func (l *LiteralExpr) Negate() {
	l.intVal = -l.intVal
	l.floatVal = -l.floatVal
}

// AsLiteral returns e as a literal, looking through parentheses.
func AsLiteral(e Expr) (*LiteralExpr, bool) {
	for {
		switch n := e.(type) {
		case *LiteralExpr:
			return n, true
		case *GroupingExpr:
			e = n.Expression
		default:
			return nil, false
		}
	}
}

// IdentifierExpr is a reference to a variable: Kd, P, ___tmp.
type IdentifierExpr struct {
	typed
	Token lexer.Token
	Name  string

	// Sym is bound by the type checker.
	Sym *symtab.Symbol
}

func (i *IdentifierExpr) Pos() lexer.Position { return i.Token.Position }
func (i *IdentifierExpr) exprNode()           {}
func (i *IdentifierExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitIdentifierExpr(i)
}

// BinaryExpr is an arithmetic or comparison: a + b, N == Ng.
type BinaryExpr struct {
	typed
	Left     Expr
	Operator lexer.Token
	Right    Expr
}

func (b *BinaryExpr) Pos() lexer.Position { return b.Left.Pos() }
func (b *BinaryExpr) exprNode()           {}
func (b *BinaryExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitBinaryExpr(b)
}

// LogicalExpr is a && b or a || b.
type LogicalExpr struct {
	typed
	Left     Expr
	Operator lexer.Token
	Right    Expr
}

func (l *LogicalExpr) Pos() lexer.Position { return l.Left.Pos() }
func (l *LogicalExpr) exprNode()           {}
func (l *LogicalExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitLogicalExpr(l)
}

// UnaryExpr is -x, !x, ++i, --i, i++ or i--.
type UnaryExpr struct {
	typed
	Operator  lexer.Token
	Operand   Expr
	IsPostfix bool
}

func (u *UnaryExpr) Pos() lexer.Position {
	if u.IsPostfix {
		return u.Operand.Pos()
	}
	return u.Operator.Position
}
func (u *UnaryExpr) exprNode() {}
func (u *UnaryExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitUnaryExpr(u)
}

// AssignmentExpr is target = value or a compound form such as target += value.
type AssignmentExpr struct {
	typed
	Target   Expr
	Operator lexer.Token
	Value    Expr
}

func (a *AssignmentExpr) Pos() lexer.Position { return a.Target.Pos() }
func (a *AssignmentExpr) exprNode()           {}
func (a *AssignmentExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitAssignmentExpr(a)
}

// IndexExpr is an array element or a triple component: a[i], Cd[0].
type IndexExpr struct {
	typed
	Object      Expr
	LeftBracket lexer.Token
	Index       Expr
}

func (i *IndexExpr) Pos() lexer.Position { return i.Object.Pos() }
func (i *IndexExpr) exprNode()           {}
func (i *IndexExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitIndexExpr(i)
}

// MemberExpr is a struct field reference: r.origin.
type MemberExpr struct {
	typed
	Object Expr
	Member *IdentifierExpr

	// Sym is the field symbol, bound by the type checker.
	Sym *symtab.Symbol
}

func (m *MemberExpr) Pos() lexer.Position { return m.Object.Pos() }
func (m *MemberExpr) exprNode()           {}
func (m *MemberExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitMemberExpr(m)
}

// CallExpr is a call to a built-in function: noise(P), mix(a, b, t).
type CallExpr struct {
	typed
	Callee *IdentifierExpr
	Args   []Expr
}

func (c *CallExpr) Pos() lexer.Position { return c.Callee.Pos() }
func (c *CallExpr) exprNode()           {}
func (c *CallExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitCallExpr(c)
}

// ConstructorExpr builds a value of a built-in type from its components:
// color(1, 0, 0), point(0), matrix(1).
type ConstructorExpr struct {
	typed
	TypeName lexer.Token
	Args     []Expr
}

func (c *ConstructorExpr) Pos() lexer.Position { return c.TypeName.Position }
func (c *ConstructorExpr) exprNode()           {}
func (c *ConstructorExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitConstructorExpr(c)
}

// GroupingExpr is a parenthesized expression.
type GroupingExpr struct {
	typed
	LeftParen  lexer.Token
	Expression Expr
}

func (g *GroupingExpr) Pos() lexer.Position { return g.LeftParen.Position }
func (g *GroupingExpr) exprNode()           {}
func (g *GroupingExpr) Accept(v Visitor) (interface{}, error) {
	return v.VisitGroupingExpr(g)
}
