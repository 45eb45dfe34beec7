package ast

import (
	"github.com/hassan/oslc/internal/lexer"
)

// Statement nodes represent actions and control flow.

// ExprStmt is an expression used as a statement: x = 5; i++;
type ExprStmt struct {
	Expression Expr
}

func (e *ExprStmt) Pos() lexer.Position { return e.Expression.Pos() }
func (e *ExprStmt) stmtNode()           {}
func (e *ExprStmt) Accept(v Visitor) error {
	return v.VisitExprStmt(e)
}

// DeclStmt declares one or more local variables of the same base type:
//
//	float a = 1, b[2] = {0, 1};
type DeclStmt struct {
	Decls []*VarDecl
}

func (d *DeclStmt) Pos() lexer.Position { return d.Decls[0].Pos() }
func (d *DeclStmt) stmtNode()           {}
func (d *DeclStmt) Accept(v Visitor) error {
	return v.VisitDeclStmt(d)
}

// BlockStmt is { stmt* }. A block opens a new scope.
type BlockStmt struct {
	LeftBrace  lexer.Token
	Statements []Stmt
	RightBrace lexer.Token
}

func (b *BlockStmt) Pos() lexer.Position { return b.LeftBrace.Position }
func (b *BlockStmt) stmtNode()           {}
func (b *BlockStmt) Accept(v Visitor) error {
	return v.VisitBlockStmt(b)
}

// IfStmt is if (cond) stmt [else stmt].
type IfStmt struct {
	IfPos      lexer.Position
	Condition  Expr
	ThenBranch Stmt
	ElseBranch Stmt // nil when there is no else
}

func (i *IfStmt) Pos() lexer.Position { return i.IfPos }
func (i *IfStmt) stmtNode()           {}
func (i *IfStmt) Accept(v Visitor) error {
	return v.VisitIfStmt(i)
}

// WhileStmt is while (cond) stmt.
type WhileStmt struct {
	WhilePos  lexer.Position
	Condition Expr
	Body      Stmt
}

func (w *WhileStmt) Pos() lexer.Position { return w.WhilePos }
func (w *WhileStmt) stmtNode()           {}
func (w *WhileStmt) Accept(v Visitor) error {
	return v.VisitWhileStmt(w)
}

// DoWhileStmt is do stmt while (cond);
type DoWhileStmt struct {
	DoPos     lexer.Position
	Body      Stmt
	Condition Expr
}

func (d *DoWhileStmt) Pos() lexer.Position { return d.DoPos }
func (d *DoWhileStmt) stmtNode()           {}
func (d *DoWhileStmt) Accept(v Visitor) error {
	return v.VisitDoWhileStmt(d)
}

// ForStmt is for (init; cond; post) stmt. Every clause is optional.
type ForStmt struct {
	ForPos    lexer.Position
	Init      Stmt // *DeclStmt, *ExprStmt or nil
	Condition Expr
	Post      Expr
	Body      Stmt
}

func (f *ForStmt) Pos() lexer.Position { return f.ForPos }
func (f *ForStmt) stmtNode()           {}
func (f *ForStmt) Accept(v Visitor) error {
	return v.VisitForStmt(f)
}

// ReturnStmt is return; inside a shader body it ends the shader early.
type ReturnStmt struct {
	ReturnPos lexer.Position
	Value     Expr
}

func (r *ReturnStmt) Pos() lexer.Position { return r.ReturnPos }
func (r *ReturnStmt) stmtNode()           {}
func (r *ReturnStmt) Accept(v Visitor) error {
	return v.VisitReturnStmt(r)
}

// BreakStmt is break;
type BreakStmt struct {
	BreakPos lexer.Position
}

func (b *BreakStmt) Pos() lexer.Position { return b.BreakPos }
func (b *BreakStmt) stmtNode()           {}
func (b *BreakStmt) Accept(v Visitor) error {
	return v.VisitBreakStmt(b)
}

// ContinueStmt is continue;
type ContinueStmt struct {
	ContinuePos lexer.Position
}

func (c *ContinueStmt) Pos() lexer.Position { return c.ContinuePos }
func (c *ContinueStmt) stmtNode()           {}
func (c *ContinueStmt) Accept(v Visitor) error {
	return v.VisitContinueStmt(c)
}
