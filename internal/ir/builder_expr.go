package ir

import (
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/parser/ast"
	"github.com/hassan/oslc/internal/semantic/types"
	"github.com/hassan/oslc/internal/symtab"
)

// Expression visitor methods. Each returns the *symtab.Symbol holding the
// value of the expression.

var binaryOps = map[lexer.TokenType]string{
	lexer.TokenPlus:         "add",
	lexer.TokenMinus:        "sub",
	lexer.TokenStar:         "mul",
	lexer.TokenSlash:        "div",
	lexer.TokenPercent:      "mod",
	lexer.TokenEqual:        "eq",
	lexer.TokenNotEqual:     "neq",
	lexer.TokenLess:         "lt",
	lexer.TokenLessEqual:    "le",
	lexer.TokenGreater:      "gt",
	lexer.TokenGreaterEqual: "ge",
	lexer.TokenAnd:          "and",
	lexer.TokenOr:           "or",

	// Compound assignment
	lexer.TokenPlusEq:  "add",
	lexer.TokenMinusEq: "sub",
	lexer.TokenStarEq:  "mul",
	lexer.TokenSlashEq: "div",

	// Increment and decrement
	lexer.TokenPlusPlus:   "add",
	lexer.TokenMinusMinus: "sub",
}

func (b *Builder) opFor(node ast.Node, tok lexer.Token) string {
	op, ok := binaryOps[tok.Type]
	if !ok {
		b.internal(node, "no opcode for operator %s", tok.Lexeme)
	}
	return op
}

func (b *Builder) VisitLiteralExpr(expr *ast.LiteralExpr) (interface{}, error) {
	switch expr.Kind {
	case ast.IntLiteral:
		return b.Const(types.TypeInt, expr.IntVal()), nil
	case ast.FloatLiteral:
		return b.Const(types.TypeFloat, expr.FloatVal()), nil
	default:
		return b.Const(types.TypeString, expr.StrVal()), nil
	}
}

func (b *Builder) VisitIdentifierExpr(expr *ast.IdentifierExpr) (interface{}, error) {
	if expr.Sym == nil {
		b.internal(expr, "identifier %q was not resolved", expr.Name)
	}
	return expr.Sym, nil
}

func (b *Builder) VisitMemberExpr(expr *ast.MemberExpr) (interface{}, error) {
	if expr.Sym == nil {
		b.internal(expr, "field %q was not resolved", expr.Member.Name)
	}
	return expr.Sym, nil
}

func (b *Builder) VisitGroupingExpr(expr *ast.GroupingExpr) (interface{}, error) {
	return b.expr(expr.Expression), nil
}

func (b *Builder) VisitBinaryExpr(expr *ast.BinaryExpr) (interface{}, error) {
	left := b.expr(expr.Left)
	right := b.expr(expr.Right)
	dst := b.Temp(expr.Type())
	b.emit(b.opFor(expr, expr.Operator), expr, dst, left, right)
	return dst, nil
}

// VisitLogicalExpr evaluates both operands; there is no short circuit.
func (b *Builder) VisitLogicalExpr(expr *ast.LogicalExpr) (interface{}, error) {
	left := b.expr(expr.Left)
	right := b.expr(expr.Right)
	dst := b.Temp(types.TypeInt)
	b.emit(b.opFor(expr, expr.Operator), expr, dst, left, right)
	return dst, nil
}

func (b *Builder) VisitUnaryExpr(expr *ast.UnaryExpr) (interface{}, error) {
	switch expr.Operator.Type {
	case lexer.TokenMinus:
		x := b.expr(expr.Operand)
		dst := b.Temp(expr.Type())
		b.emit("neg", expr, dst, x)
		return dst, nil

	case lexer.TokenNot:
		x := b.expr(expr.Operand)
		dst := b.Temp(types.TypeInt)
		b.emit("not", expr, dst, x)
		return dst, nil
	}

	// ++ and --
	t := expr.Operand.Type()
	cur := b.expr(expr.Operand)
	one := b.Const(types.TypeInt, int64(1))
	if t.IsFloat() {
		one = b.Const(types.TypeFloat, float64(1))
	}

	var old *symtab.Symbol
	if expr.IsPostfix {
		old = b.Temp(t)
		b.emit("assign", expr, old, cur)
	}
	next := b.Temp(t)
	b.emit(b.opFor(expr, expr.Operator), expr, next, cur, one)
	b.store(expr.Operand, next, expr)

	if expr.IsPostfix {
		return old, nil
	}
	return b.result(expr.Operand, next), nil
}

// VisitAssignmentExpr emits "assign" for plain assignment and the
// arithmetic opcode followed by "assign" for compound forms.
func (b *Builder) VisitAssignmentExpr(expr *ast.AssignmentExpr) (interface{}, error) {
	if expr.Operator.Type == lexer.TokenAssign {
		v := b.expr(expr.Value)
		b.store(expr.Target, v, expr)
		return b.result(expr.Target, v), nil
	}

	cur := b.expr(expr.Target)
	v := b.expr(expr.Value)
	tmp := b.Temp(expr.Type())
	b.emit(b.opFor(expr, expr.Operator), expr, tmp, cur, v)
	b.store(expr.Target, tmp, expr)
	return b.result(expr.Target, tmp), nil
}

// store writes v to the location target names.
func (b *Builder) store(target ast.Expr, v *symtab.Symbol, node ast.Node) {
	switch t := target.(type) {
	case *ast.GroupingExpr:
		b.store(t.Expression, v, node)

	case *ast.IdentifierExpr, *ast.MemberExpr:
		b.emit("assign", node, b.expr(t), v)

	case *ast.IndexExpr:
		if inner, ok := unparen(t.Object).(*ast.IndexExpr); ok {
			// a[i][j] = v: component j of element i of an array of
			// triples. Copy the element out, update it, copy it back.
			arr := b.expr(inner.Object)
			i := b.expr(inner.Index)
			elem := b.Temp(inner.Type())
			b.emit("aref", node, elem, arr, i)
			b.emit("compassign", node, elem, b.expr(t.Index), v)
			b.emit("aassign", node, arr, i, elem)
			return
		}
		obj := b.expr(t.Object)
		idx := b.expr(t.Index)
		b.emit(elementOp(t.Object.Type(), "aassign", "compassign"), node, obj, idx, v)

	default:
		b.internal(node, "cannot store to %T", target)
	}
}

// result is the value of an assignment expression: the assigned variable
// when there is one, the stored value otherwise.
func (b *Builder) result(target ast.Expr, v *symtab.Symbol) *symtab.Symbol {
	switch t := unparen(target).(type) {
	case *ast.IdentifierExpr:
		return t.Sym
	case *ast.MemberExpr:
		return t.Sym
	}
	return v
}

func unparen(e ast.Expr) ast.Expr {
	for {
		g, ok := e.(*ast.GroupingExpr)
		if !ok {
			return e
		}
		e = g.Expression
	}
}

// elementOp picks the array form for arrays and the component form for
// triples.
func elementOp(object types.TypeSpec, array, component string) string {
	if object.IsTriple() {
		return component
	}
	return array
}

func (b *Builder) VisitIndexExpr(expr *ast.IndexExpr) (interface{}, error) {
	obj := b.expr(expr.Object)
	idx := b.expr(expr.Index)
	dst := b.Temp(expr.Type())
	b.emit(elementOp(expr.Object.Type(), "aref", "compref"), expr, dst, obj, idx)
	return dst, nil
}

func (b *Builder) VisitCallExpr(expr *ast.CallExpr) (interface{}, error) {
	args := b.exprs(expr.Args)
	if expr.Type().IsVoid() {
		b.emit(expr.Callee.Name, expr, args...)
		return nil, nil
	}
	dst := b.Temp(expr.Type())
	b.emit(expr.Callee.Name, expr, append([]*symtab.Symbol{dst}, args...)...)
	return dst, nil
}

// VisitConstructorExpr emits "<typename> dst args...".
func (b *Builder) VisitConstructorExpr(expr *ast.ConstructorExpr) (interface{}, error) {
	args := b.exprs(expr.Args)
	dst := b.Temp(expr.Type())
	b.emit(expr.TypeName.Lexeme, expr, append([]*symtab.Symbol{dst}, args...)...)
	return dst, nil
}

func (b *Builder) exprs(es []ast.Expr) []*symtab.Symbol {
	syms := make([]*symtab.Symbol, len(es))
	for i, e := range es {
		if syms[i] = b.expr(e); syms[i] == nil {
			b.internal(e, "argument %d has no value", i+1)
		}
	}
	return syms
}
