// Package semantic implements the type checker.
//
// SEMANTIC ANALYSIS:
// After parsing, the AST is syntactically correct but may still be
// meaningless. The checker:
//  1. declares every parameter, local and struct field in the symbol table
//  2. resolves every identifier to its symbol (undeclared names are errors)
//  3. computes the type of every expression and records it on the node
//  4. checks assignments, initializers, metadata, conditions and loops
//
// DESIGN PHILOSOPHY:
//   - Collect all errors, don't stop at the first one
//   - One pass with the visitor pattern; declarations must precede use
//   - The AST is annotated in place (expression types, bound symbols) so
//     that code generation never resolves a name again
//
// Errors and warnings go to a diag.Sink with the file and line of the
// offending node. An expression whose type could not be determined gets
// types.TypeUnknown, which is accepted everywhere so one mistake is
// reported once.
package semantic

import (
	"strings"

	"github.com/hassan/oslc/internal/diag"
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/parser/ast"
	"github.com/hassan/oslc/internal/semantic/types"
	"github.com/hassan/oslc/internal/symtab"
)

// Analyzer type checks one file against one symbol table.
type Analyzer struct {
	table *symtab.Table
	sink  *diag.Sink

	// structs maps a struct name to its declaration.
	structs map[string]*ast.StructDecl
}

// New creates an analyzer that declares symbols in table and reports to
// sink.
func New(table *symtab.Table, sink *diag.Sink) *Analyzer {
	return &Analyzer{
		table:   table,
		sink:    sink,
		structs: make(map[string]*ast.StructDecl),
	}
}

// Analyze checks the whole file and returns its shader, or nil if the file
// declares none. A file with more than one shader is an error; the first
// one is still checked.
func (a *Analyzer) Analyze(file *ast.File) *ast.ShaderDecl {
	for _, s := range file.Structs {
		a.declareStruct(s)
	}

	if len(file.Shaders) == 0 {
		return nil
	}
	for _, extra := range file.Shaders[1:] {
		a.error(extra.Pos(), "only one shader may be defined per file, %q already defined", file.Shaders[0].Name.Name)
	}

	shader := file.Shaders[0]
	a.checkShader(shader)
	return shader
}

// declareStruct records a struct type. Fields are checked for duplicates
// and for unknown or recursive types.
func (a *Analyzer) declareStruct(decl *ast.StructDecl) {
	name := decl.Name.Name
	if prev, ok := a.structs[name]; ok {
		a.error(decl.Pos(), "struct %q redefined, previous definition at %s", name, prev.Pos())
		return
	}

	seen := make(map[string]bool)
	for _, f := range decl.Fields {
		if seen[f.Name.Name] {
			a.error(f.Pos(), "field %q is declared twice in struct %q", f.Name.Name, name)
		}
		seen[f.Name.Name] = true
		if f.DeclType.Tag == types.Struct && f.DeclType.StructName == name {
			a.error(f.Pos(), "struct %q cannot contain itself", name)
		}
	}
	a.structs[name] = decl

	sym := &symtab.Symbol{Name: name, Type: types.NewStruct(name), SymType: symtab.SymTypeName, Node: decl, Pos: decl.Pos()}
	if err := a.table.Insert(sym); err != nil {
		a.error(decl.Pos(), "%v", err)
	}
}

// checkShader declares the parameters in the global scope and checks the
// body in a shader scope of its own.
func (a *Analyzer) checkShader(shader *ast.ShaderDecl) {
	for _, param := range shader.Params {
		a.checkParam(param)
	}

	a.table.Push(symtab.ScopeShader)
	for _, stmt := range shader.Body.Statements {
		a.stmt(stmt)
	}
	a.closeScope()
}

func (a *Analyzer) checkParam(param *ast.VarDecl) {
	if param.DeclType.IsClosure() {
		a.checkClosureDefault(param)
	} else {
		a.checkInit(param)
	}
	for _, meta := range param.Meta {
		a.checkMetadata(param, meta)
	}

	symType := symtab.SymParam
	if param.Output {
		symType = symtab.SymOutputParam
	}
	a.declare(param, symType)
}

// checkClosureDefault accepts only 0 for each element: a closure
// parameter starts out empty.
func (a *Analyzer) checkClosureDefault(param *ast.VarDecl) {
	name := param.Name.Name
	if !param.DeclType.IsArray() && len(param.Init) > 1 {
		a.error(param.Pos(), "%s %q cannot be initialized from a list", param.DeclType, name)
	}
	for _, init := range param.Init {
		a.expr(init)
		lit, ok := ast.AsLiteral(init)
		zero := ok && ((lit.Kind == ast.IntLiteral && lit.IntVal() == 0) ||
			(lit.Kind == ast.FloatLiteral && lit.FloatVal() == 0))
		if !zero {
			a.error(init.Pos(), "closure parameter %q can only default to 0", name)
		}
	}
}

// checkMetadata accepts int, float and string entries whose value fits
// the declared type.
func (a *Analyzer) checkMetadata(param, meta *ast.VarDecl) {
	t := meta.DeclType
	if !t.IsInt() && !t.IsFloat() && !t.IsString() {
		a.error(meta.Pos(), "metadata %q of parameter %q has unsupported type %s", meta.Name.Name, param.Name.Name, t)
		return
	}
	for _, init := range meta.Init {
		vt := a.expr(init)
		if !vt.AssignableTo(t) {
			a.error(init.Pos(), "metadata %q: cannot initialize %s with %s", meta.Name.Name, t, vt)
		}
	}
}

// checkInit checks the initializer list of a declaration against its
// declared type. It runs before the name is declared, so "float x = x"
// refers to an outer x.
func (a *Analyzer) checkInit(decl *ast.VarDecl) {
	if !decl.HasInit() {
		return
	}
	t := decl.DeclType
	name := decl.Name.Name

	if t.Tag == types.Struct {
		a.error(decl.Pos(), "struct variable %q cannot have an initializer", name)
		return
	}

	if t.IsArray() {
		if len(decl.Init) > t.ArrayLen {
			a.error(decl.Pos(), "too many initializers for %s %q", t, name)
		}
		elem := t.Elem()
		for _, init := range decl.Init {
			if vt := a.expr(init); !vt.AssignableTo(elem) {
				a.error(init.Pos(), "cannot initialize element of %s %q with %s", t, name, vt)
			}
		}
		return
	}

	if len(decl.Init) != 1 {
		a.error(decl.Pos(), "%s %q cannot be initialized from a list", t, name)
		for _, init := range decl.Init {
			a.expr(init)
		}
		return
	}
	if vt := a.expr(decl.Init[0]); !vt.AssignableTo(t) {
		a.error(decl.Init[0].Pos(), "cannot initialize %s %q with %s", t, name, vt)
	}
}

// declare inserts the symbol for decl in the current scope. Struct
// variables also get one symbol per field, named "var.field".
func (a *Analyzer) declare(decl *ast.VarDecl, symType symtab.SymType) {
	if decl.DeclType.IsVoid() {
		a.error(decl.Pos(), "variable %q declared void", decl.Name.Name)
	}
	sym := &symtab.Symbol{
		Name:    decl.Name.Name,
		Type:    decl.DeclType,
		SymType: symType,
		Node:    decl,
		Pos:     decl.Pos(),
	}
	if err := a.table.Insert(sym); err != nil {
		a.error(decl.Pos(), "%v", err)
		return
	}
	decl.Sym = sym
	decl.Name.Sym = sym

	if decl.DeclType.IsStruct() {
		a.declareFields(sym, decl.DeclType.StructName, symType, decl.Pos())
	}
}

func (a *Analyzer) declareFields(parent *symtab.Symbol, structName string, symType symtab.SymType, pos lexer.Position) {
	sd, ok := a.structs[structName]
	if !ok {
		a.error(pos, "unknown struct %q", structName)
		return
	}
	for _, f := range sd.Fields {
		field := &symtab.Symbol{
			Name:    parent.Name + "." + f.Name.Name,
			Type:    f.DeclType,
			SymType: symType,
			Node:    f,
			Pos:     pos,
		}
		if err := a.table.Insert(field); err != nil {
			// Duplicate field, already reported with the struct.
			continue
		}
		if f.DeclType.IsStruct() && f.DeclType.StructName != structName {
			a.declareFields(field, f.DeclType.StructName, symType, pos)
		}
	}
}

// closeScope warns about unused locals and pops the scope.
func (a *Analyzer) closeScope() {
	for _, sym := range a.table.Current().UnusedSymbols() {
		if sym.SymType != symtab.SymLocal || strings.Contains(sym.Name, ".") {
			continue
		}
		a.sink.Warningf(sym.Pos.Filename, sym.Pos.Line, "variable %q is declared but never used", sym.Name)
	}
	a.table.Pop()
}

func (a *Analyzer) error(pos lexer.Position, format string, args ...interface{}) {
	a.sink.Errorf(pos.Filename, pos.Line, format, args...)
}

func (a *Analyzer) stmt(s ast.Stmt) {
	if s != nil {
		_ = s.Accept(a)
	}
}

// Visitor implementation for statements

func (a *Analyzer) VisitExprStmt(stmt *ast.ExprStmt) error {
	a.expr(stmt.Expression)
	return nil
}

func (a *Analyzer) VisitDeclStmt(stmt *ast.DeclStmt) error {
	for _, decl := range stmt.Decls {
		a.checkInit(decl)
		a.declare(decl, symtab.SymLocal)
	}
	return nil
}

func (a *Analyzer) VisitBlockStmt(stmt *ast.BlockStmt) error {
	a.table.Push(symtab.ScopeBlock)
	for _, s := range stmt.Statements {
		a.stmt(s)
	}
	a.closeScope()
	return nil
}

func (a *Analyzer) VisitIfStmt(stmt *ast.IfStmt) error {
	a.condition(stmt.Condition, "if")
	a.stmt(stmt.ThenBranch)
	a.stmt(stmt.ElseBranch)
	return nil
}

func (a *Analyzer) VisitWhileStmt(stmt *ast.WhileStmt) error {
	a.table.Push(symtab.ScopeLoop)
	a.condition(stmt.Condition, "while")
	a.stmt(stmt.Body)
	a.closeScope()
	return nil
}

func (a *Analyzer) VisitDoWhileStmt(stmt *ast.DoWhileStmt) error {
	a.table.Push(symtab.ScopeLoop)
	a.stmt(stmt.Body)
	a.condition(stmt.Condition, "do-while")
	a.closeScope()
	return nil
}

func (a *Analyzer) VisitForStmt(stmt *ast.ForStmt) error {
	// The init clause is scoped to the loop.
	a.table.Push(symtab.ScopeLoop)
	a.stmt(stmt.Init)
	if stmt.Condition != nil {
		a.condition(stmt.Condition, "for")
	}
	if stmt.Post != nil {
		a.expr(stmt.Post)
	}
	a.stmt(stmt.Body)
	a.closeScope()
	return nil
}

func (a *Analyzer) VisitReturnStmt(stmt *ast.ReturnStmt) error {
	if stmt.Value != nil {
		a.expr(stmt.Value)
		a.error(stmt.Pos(), "a shader cannot return a value")
	}
	return nil
}

func (a *Analyzer) VisitBreakStmt(stmt *ast.BreakStmt) error {
	if a.table.Current().FindEnclosingLoop() == nil {
		a.error(stmt.Pos(), "break statement not within a loop")
	}
	return nil
}

func (a *Analyzer) VisitContinueStmt(stmt *ast.ContinueStmt) error {
	if a.table.Current().FindEnclosingLoop() == nil {
		a.error(stmt.Pos(), "continue statement not within a loop")
	}
	return nil
}

// condition checks that a control condition is an int or a float.
func (a *Analyzer) condition(e ast.Expr, construct string) {
	t := a.expr(e)
	if !t.IsUnknown() && !t.IsScalarNumeric() {
		a.error(e.Pos(), "%s condition must be int or float, not %s", construct, t)
	}
}
