package semantic

import (
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/parser/ast"
	"github.com/hassan/oslc/internal/semantic/types"
	"github.com/hassan/oslc/internal/symtab"
)

// Expression visitor methods. Every method records the computed type on
// the node with SetType and returns it.

// expr checks e and returns its type.
func (a *Analyzer) expr(e ast.Expr) types.TypeSpec {
	result, _ := e.Accept(a)
	t, _ := result.(types.TypeSpec)
	return t
}

func (a *Analyzer) typed(e ast.Expr, t types.TypeSpec) (interface{}, error) {
	e.SetType(t)
	return t, nil
}

func (a *Analyzer) VisitLiteralExpr(expr *ast.LiteralExpr) (interface{}, error) {
	switch expr.Kind {
	case ast.IntLiteral:
		return a.typed(expr, types.TypeInt)
	case ast.FloatLiteral:
		return a.typed(expr, types.TypeFloat)
	default:
		return a.typed(expr, types.TypeString)
	}
}

func (a *Analyzer) VisitIdentifierExpr(expr *ast.IdentifierExpr) (interface{}, error) {
	sym := a.table.Lookup(expr.Name)
	if sym == nil {
		a.error(expr.Pos(), "%q was not declared in this scope", expr.Name)
		return a.typed(expr, types.TypeUnknown)
	}
	if sym.SymType == symtab.SymTypeName {
		a.error(expr.Pos(), "%q is a type, not a value", expr.Name)
		return a.typed(expr, types.TypeUnknown)
	}
	expr.Sym = sym
	return a.typed(expr, sym.Type)
}

func (a *Analyzer) VisitGroupingExpr(expr *ast.GroupingExpr) (interface{}, error) {
	return a.typed(expr, a.expr(expr.Expression))
}

func (a *Analyzer) VisitBinaryExpr(expr *ast.BinaryExpr) (interface{}, error) {
	left := a.expr(expr.Left)
	right := a.expr(expr.Right)
	if left.IsUnknown() || right.IsUnknown() {
		return a.typed(expr, types.TypeUnknown)
	}

	result := binaryResult(expr.Operator.Type, left, right)
	if result.IsUnknown() {
		a.error(expr.Pos(), "operator %s is not defined on %s and %s", expr.Operator.Lexeme, left, right)
	}
	return a.typed(expr, result)
}

// binaryResult returns the type of "left op right", or TypeUnknown if the
// operator does not apply.
func binaryResult(op lexer.TokenType, left, right types.TypeSpec) types.TypeSpec {
	switch op {
	case lexer.TokenPlus, lexer.TokenMinus:
		if left.IsClosure() && left == right && !left.IsArray() {
			return left
		}
		return types.Promote(left, right)

	case lexer.TokenStar, lexer.TokenSlash:
		return types.Promote(left, right)

	case lexer.TokenPercent:
		if left.IsInt() && right.IsInt() {
			return types.TypeInt
		}

	case lexer.TokenEqual, lexer.TokenNotEqual:
		switch {
		case left.IsString() && right.IsString():
			return types.TypeInt
		case left.IsClosure() || right.IsClosure():
			return types.TypeUnknown
		case !types.Promote(left, right).IsUnknown():
			return types.TypeInt
		}

	case lexer.TokenLess, lexer.TokenLessEqual, lexer.TokenGreater, lexer.TokenGreaterEqual:
		if left.IsScalarNumeric() && right.IsScalarNumeric() {
			return types.TypeInt
		}
	}
	return types.TypeUnknown
}

func (a *Analyzer) VisitLogicalExpr(expr *ast.LogicalExpr) (interface{}, error) {
	left := a.expr(expr.Left)
	right := a.expr(expr.Right)
	for _, t := range []types.TypeSpec{left, right} {
		if !t.IsUnknown() && !t.IsScalarNumeric() {
			a.error(expr.Pos(), "operator %s needs int or float operands, not %s", expr.Operator.Lexeme, t)
		}
	}
	return a.typed(expr, types.TypeInt)
}

func (a *Analyzer) VisitUnaryExpr(expr *ast.UnaryExpr) (interface{}, error) {
	t := a.expr(expr.Operand)
	if t.IsUnknown() {
		return a.typed(expr, t)
	}

	switch expr.Operator.Type {
	case lexer.TokenMinus:
		if !t.IsNumeric() && !(t.IsClosure() && !t.IsArray()) {
			a.error(expr.Pos(), "cannot negate %s", t)
			return a.typed(expr, types.TypeUnknown)
		}
		return a.typed(expr, t)

	case lexer.TokenNot:
		if !t.IsScalarNumeric() {
			a.error(expr.Pos(), "operator ! needs an int or float operand, not %s", t)
		}
		return a.typed(expr, types.TypeInt)

	default: // ++ and --
		if !t.IsScalarNumeric() {
			a.error(expr.Pos(), "operator %s needs an int or float operand, not %s", expr.Operator.Lexeme, t)
			return a.typed(expr, types.TypeUnknown)
		}
		a.checkLvalue(expr.Operand)
		return a.typed(expr, t)
	}
}

func (a *Analyzer) VisitAssignmentExpr(expr *ast.AssignmentExpr) (interface{}, error) {
	target := a.expr(expr.Target)
	value := a.expr(expr.Value)
	a.checkLvalue(expr.Target)
	if target.IsStruct() {
		a.error(expr.Pos(), "%s cannot be assigned as a whole, assign its fields", target)
		return a.typed(expr, target)
	}

	if expr.Operator.Type != lexer.TokenAssign && !target.IsUnknown() && !value.IsUnknown() {
		result := binaryResult(compoundOperator(expr.Operator.Type), target, value)
		if result.IsUnknown() {
			a.error(expr.Pos(), "operator %s is not defined on %s and %s", expr.Operator.Lexeme, target, value)
			return a.typed(expr, target)
		}
		value = result
	}

	if !value.AssignableTo(target) {
		a.error(expr.Pos(), "cannot assign %s to %s", value, target)
	}
	return a.typed(expr, target)
}

// compoundOperator maps "+=" to "+" and so on.
func compoundOperator(op lexer.TokenType) lexer.TokenType {
	switch op {
	case lexer.TokenPlusEq:
		return lexer.TokenPlus
	case lexer.TokenMinusEq:
		return lexer.TokenMinus
	case lexer.TokenStarEq:
		return lexer.TokenStar
	case lexer.TokenSlashEq:
		return lexer.TokenSlash
	}
	return op
}

// checkLvalue reports e if it cannot be written: anything other than a
// variable, an element of one or a field of one, and input parameters.
func (a *Analyzer) checkLvalue(e ast.Expr) {
	root := e
	for {
		switch n := root.(type) {
		case *ast.IndexExpr:
			root = n.Object
			continue
		case *ast.MemberExpr:
			root = n.Object
			continue
		case *ast.GroupingExpr:
			root = n.Expression
			continue
		case *ast.IdentifierExpr:
			if n.Sym != nil && !n.Sym.CanAssign() {
				a.error(e.Pos(), "cannot assign to %s %q", n.Sym.SymType, n.Name)
			}
			return
		}
		a.error(e.Pos(), "expression is not assignable")
		return
	}
}

func (a *Analyzer) VisitIndexExpr(expr *ast.IndexExpr) (interface{}, error) {
	object := a.expr(expr.Object)
	index := a.expr(expr.Index)
	if !index.IsUnknown() && !index.IsInt() {
		a.error(expr.Index.Pos(), "index must be an int, not %s", index)
	}

	switch {
	case object.IsUnknown():
		return a.typed(expr, types.TypeUnknown)
	case object.IsArray():
		return a.typed(expr, object.Elem())
	case object.IsTriple():
		// Component access: P[0].
		return a.typed(expr, types.TypeFloat)
	}
	a.error(expr.Pos(), "cannot index %s", object)
	return a.typed(expr, types.TypeUnknown)
}

func (a *Analyzer) VisitMemberExpr(expr *ast.MemberExpr) (interface{}, error) {
	object := a.expr(expr.Object)
	if object.IsUnknown() {
		return a.typed(expr, object)
	}
	if !object.IsStruct() {
		a.error(expr.Pos(), "%s has no field %q", object, expr.Member.Name)
		return a.typed(expr, types.TypeUnknown)
	}

	parent := boundSymbol(expr.Object)
	if parent == nil {
		a.error(expr.Pos(), "field %q of a %s value cannot be referenced", expr.Member.Name, object)
		return a.typed(expr, types.TypeUnknown)
	}
	field := parent.Scope.LookupLocal(parent.Name + "." + expr.Member.Name)
	if field == nil {
		a.error(expr.Member.Pos(), "struct %s has no field %q", object.StructName, expr.Member.Name)
		return a.typed(expr, types.TypeUnknown)
	}
	field.MarkUsed()
	expr.Sym = field
	expr.Member.Sym = field
	return a.typed(expr, field.Type)
}

// boundSymbol returns the symbol an identifier or field reference was
// bound to.
func boundSymbol(e ast.Expr) *symtab.Symbol {
	switch n := e.(type) {
	case *ast.IdentifierExpr:
		return n.Sym
	case *ast.MemberExpr:
		return n.Sym
	case *ast.GroupingExpr:
		return boundSymbol(n.Expression)
	}
	return nil
}

func (a *Analyzer) VisitCallExpr(expr *ast.CallExpr) (interface{}, error) {
	args := make([]types.TypeSpec, len(expr.Args))
	for i, arg := range expr.Args {
		args[i] = a.expr(arg)
	}

	name := expr.Callee.Name
	fn, ok := builtins[name]
	if !ok {
		a.error(expr.Pos(), "function %q is not defined", name)
		return a.typed(expr, types.TypeUnknown)
	}
	for _, t := range args {
		if t.IsUnknown() {
			return a.typed(expr, types.TypeUnknown)
		}
	}

	result, err := fn.check(args)
	if err != nil {
		a.error(expr.Pos(), "%s: %v", name, err)
		return a.typed(expr, types.TypeUnknown)
	}
	return a.typed(expr, result)
}

func (a *Analyzer) VisitConstructorExpr(expr *ast.ConstructorExpr) (interface{}, error) {
	args := make([]types.TypeSpec, len(expr.Args))
	unknown := false
	for i, arg := range expr.Args {
		args[i] = a.expr(arg)
		unknown = unknown || args[i].IsUnknown()
	}

	t, ok := types.Parse(expr.TypeName.Lexeme)
	if !ok || t.IsVoid() {
		a.error(expr.Pos(), "%s is not a constructible type", expr.TypeName.Lexeme)
		return a.typed(expr, types.TypeUnknown)
	}
	if unknown {
		return a.typed(expr, t)
	}
	if !constructible(t, args) {
		a.error(expr.Pos(), "no %s constructor takes (%s)", t, typeList(args))
	}
	return a.typed(expr, t)
}

// constructible reports whether a value of type t can be built from args.
//
//	int(x), float(x)          one scalar
//	string("s")               one string
//	color(x), color(x, y, z)  scalars, optionally after a space name
//	matrix(x), 16 scalars     optionally after a space name
func constructible(t types.TypeSpec, args []types.TypeSpec) bool {
	switch {
	case t.IsInt(), t.IsFloat():
		return len(args) == 1 && args[0].IsScalarNumeric()
	case t.IsString():
		return len(args) == 1 && args[0].IsString()
	}

	if len(args) > 1 && args[0].IsString() {
		args = args[1:]
	}
	if t.IsTriple() && len(args) == 1 && args[0].IsTriple() {
		return true
	}
	for _, arg := range args {
		if !arg.IsScalarNumeric() {
			return false
		}
	}
	switch {
	case t.IsTriple():
		return len(args) == 1 || len(args) == 3
	case t.IsMatrix():
		return len(args) == 1 || len(args) == 16
	}
	return false
}
