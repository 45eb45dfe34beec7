package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented dump of the tree to w. Checked expression types
// are shown in parentheses after each expression node.
func Fprint(w io.Writer, f *File) error {
	p := &printer{w: w}
	for _, s := range f.Structs {
		p.line("struct %s", s.Name.Name)
		p.depth++
		for _, field := range s.Fields {
			p.decl("field", field)
		}
		p.depth--
	}
	for _, sh := range f.Shaders {
		p.line("shader %s %s", sh.Kind.Lexeme, sh.Name.Name)
		p.depth++
		for _, param := range sh.Params {
			kind := "param"
			if param.Output {
				kind = "output param"
			}
			p.decl(kind, param)
		}
		if sh.Body != nil {
			p.stmt(sh.Body)
		}
		p.depth--
	}
	return p.err
}

type printer struct {
	w     io.Writer
	depth int
	err   error
}

func (p *printer) line(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", p.depth), fmt.Sprintf(format, args...))
}

func (p *printer) decl(kind string, d *VarDecl) {
	p.line("%s %s %s", kind, d.DeclType, d.Name.Name)
	p.depth++
	for _, e := range d.Init {
		p.expr(e)
	}
	for _, m := range d.Meta {
		p.decl("meta", m)
	}
	p.depth--
}

func (p *printer) stmt(s Stmt) {
	if s == nil {
		return
	}
	_ = s.Accept(p)
}

func (p *printer) expr(e Expr) {
	if e == nil {
		return
	}
	_, _ = e.Accept(p)
}

func (p *printer) node(label string, e Expr) {
	p.line("%s (%s)", label, e.Type())
}

func (p *printer) VisitLiteralExpr(expr *LiteralExpr) (interface{}, error) {
	switch expr.Kind {
	case IntLiteral:
		p.node("int "+strconv.FormatInt(expr.IntVal(), 10), expr)
	case FloatLiteral:
		p.node("float "+strconv.FormatFloat(expr.FloatVal(), 'g', -1, 64), expr)
	default:
		p.node("string "+strconv.Quote(expr.StrVal()), expr)
	}
	return nil, nil
}

func (p *printer) VisitIdentifierExpr(expr *IdentifierExpr) (interface{}, error) {
	p.node("ident "+expr.Name, expr)
	return nil, nil
}

func (p *printer) VisitBinaryExpr(expr *BinaryExpr) (interface{}, error) {
	p.node("binary "+expr.Operator.Lexeme, expr)
	p.children(expr.Left, expr.Right)
	return nil, nil
}

func (p *printer) VisitLogicalExpr(expr *LogicalExpr) (interface{}, error) {
	p.node("logical "+expr.Operator.Lexeme, expr)
	p.children(expr.Left, expr.Right)
	return nil, nil
}

func (p *printer) VisitUnaryExpr(expr *UnaryExpr) (interface{}, error) {
	label := "unary " + expr.Operator.Lexeme
	if expr.IsPostfix {
		label = "postfix " + expr.Operator.Lexeme
	}
	p.node(label, expr)
	p.children(expr.Operand)
	return nil, nil
}

func (p *printer) VisitAssignmentExpr(expr *AssignmentExpr) (interface{}, error) {
	p.node("assign "+expr.Operator.Lexeme, expr)
	p.children(expr.Target, expr.Value)
	return nil, nil
}

func (p *printer) VisitIndexExpr(expr *IndexExpr) (interface{}, error) {
	p.node("index", expr)
	p.children(expr.Object, expr.Index)
	return nil, nil
}

func (p *printer) VisitMemberExpr(expr *MemberExpr) (interface{}, error) {
	p.node("member ."+expr.Member.Name, expr)
	p.children(expr.Object)
	return nil, nil
}

func (p *printer) VisitCallExpr(expr *CallExpr) (interface{}, error) {
	p.node("call "+expr.Callee.Name, expr)
	p.children(expr.Args...)
	return nil, nil
}

func (p *printer) VisitConstructorExpr(expr *ConstructorExpr) (interface{}, error) {
	p.node("construct "+expr.TypeName.Lexeme, expr)
	p.children(expr.Args...)
	return nil, nil
}

func (p *printer) VisitGroupingExpr(expr *GroupingExpr) (interface{}, error) {
	p.expr(expr.Expression)
	return nil, nil
}

func (p *printer) children(exprs ...Expr) {
	p.depth++
	for _, e := range exprs {
		p.expr(e)
	}
	p.depth--
}

func (p *printer) VisitExprStmt(stmt *ExprStmt) error {
	p.expr(stmt.Expression)
	return nil
}

func (p *printer) VisitDeclStmt(stmt *DeclStmt) error {
	for _, d := range stmt.Decls {
		p.decl("local", d)
	}
	return nil
}

func (p *printer) VisitBlockStmt(stmt *BlockStmt) error {
	p.line("block")
	p.depth++
	for _, s := range stmt.Statements {
		p.stmt(s)
	}
	p.depth--
	return nil
}

func (p *printer) VisitIfStmt(stmt *IfStmt) error {
	p.line("if")
	p.depth++
	p.expr(stmt.Condition)
	p.stmt(stmt.ThenBranch)
	if stmt.ElseBranch != nil {
		p.line("else")
		p.stmt(stmt.ElseBranch)
	}
	p.depth--
	return nil
}

func (p *printer) VisitWhileStmt(stmt *WhileStmt) error {
	p.line("while")
	p.depth++
	p.expr(stmt.Condition)
	p.stmt(stmt.Body)
	p.depth--
	return nil
}

func (p *printer) VisitDoWhileStmt(stmt *DoWhileStmt) error {
	p.line("dowhile")
	p.depth++
	p.stmt(stmt.Body)
	p.expr(stmt.Condition)
	p.depth--
	return nil
}

func (p *printer) VisitForStmt(stmt *ForStmt) error {
	p.line("for")
	p.depth++
	p.stmt(stmt.Init)
	p.expr(stmt.Condition)
	p.expr(stmt.Post)
	p.stmt(stmt.Body)
	p.depth--
	return nil
}

func (p *printer) VisitReturnStmt(stmt *ReturnStmt) error {
	p.line("return")
	p.children(stmt.Value)
	return nil
}

func (p *printer) VisitBreakStmt(stmt *BreakStmt) error {
	p.line("break")
	return nil
}

func (p *printer) VisitContinueStmt(stmt *ContinueStmt) error {
	p.line("continue")
	return nil
}
