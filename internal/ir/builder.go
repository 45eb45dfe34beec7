package ir

import (
	"fmt"
	"strconv"

	"github.com/hassan/oslc/internal/diag"
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/parser/ast"
	"github.com/hassan/oslc/internal/semantic/types"
	"github.com/hassan/oslc/internal/symtab"
)

// Builder generates the opcode stream from a type-checked shader.
//
// DESIGN PHILOSOPHY:
// The builder is a visitor that walks the AST once, depth first, and
// appends opcodes as it goes. Expressions return the symbol holding their
// value: a variable, a $constN for a literal or a fresh $tmpN.
//
// Jump slots are filled by backpatching. A control construct asks for a
// label, points its jump slots at it and later binds the label; a bound
// label resolves to whatever instruction is appended next. A method that
// ends with labels still waiting gets a trailing "nop" for them to land on.
//
// The builder trusts the type checker. A construct it cannot lower is an
// internal compiler error (diag.Internalf), not a user error.
type Builder struct {
	unit   *Unit
	table  *symtab.Table
	method string

	// consts deduplicates literals by type and text.
	consts map[constKey]*symtab.Symbol

	ntemps  int
	nconsts int

	// pending labels resolve to the next appended instruction.
	pending []*label

	// labels is every label created, checked by Finish.
	labels []*label
}

type constKey struct {
	typ  string
	text string
}

// label is a jump destination that may not exist yet.
type label struct {
	// node requested the label; it locates internal errors.
	node  ast.Node
	index int
	slots []slotRef
}

type slotRef struct {
	op   int
	slot int
}

// NewBuilder creates a builder for a unit of the given kind and name.
// Temporaries and constants are added to table.
func NewBuilder(table *symtab.Table, kind ShaderKind, name string) *Builder {
	return &Builder{
		unit:   &Unit{Kind: kind, Name: name, Symtab: table},
		table:  table,
		method: MainMethod,
		consts: make(map[constKey]*symtab.Symbol),
	}
}

// Generate lowers a checked shader into a unit. It panics with a
// *diag.InternalError if the result is inconsistent.
func Generate(shader *ast.ShaderDecl, table *symtab.Table) *Unit {
	kind, ok := ParseShaderKind(shader.Kind.Lexeme)
	if !ok {
		pos := shader.Pos()
		diag.Internalf(pos.Filename, pos.Line, "unknown shader kind %q", shader.Kind.Lexeme)
	}
	b := NewBuilder(table, kind, shader.Name.Name)
	b.Build(shader)
	return b.Finish()
}

// Build generates the shader body into the main method.
func (b *Builder) Build(shader *ast.ShaderDecl) {
	b.method = MainMethod
	for _, s := range shader.Body.Statements {
		b.stmt(s)
	}
}

// Finish closes the current method and checks that every jump slot was
// resolved. It returns the finished unit.
func (b *Builder) Finish() *Unit {
	b.closeMethod()
	for _, l := range b.labels {
		if l.index < 0 && len(l.slots) > 0 {
			pos := l.node.Pos()
			diag.Internalf(pos.Filename, pos.Line, "jump target never materialized in %s", b.method)
		}
	}
	if err := b.unit.Verify(); err != nil {
		var pos lexer.Position
		if je, ok := err.(*JumpError); ok && je.Op.Node != nil {
			pos = je.Op.Node.Pos()
		}
		diag.Internalf(pos.Filename, pos.Line, "%v", err)
	}
	return b.unit
}

// closeMethod anchors labels still waiting for an instruction.
func (b *Builder) closeMethod() {
	if len(b.pending) > 0 {
		b.emit("nop", b.pending[0].node)
	}
}

// emit appends an opcode and resolves the pending labels to it.
func (b *Builder) emit(op string, node ast.Node, args ...*symtab.Symbol) int {
	idx := len(b.unit.Code)
	b.unit.Code = append(b.unit.Code, NewOpcode(op, b.method, node, args...))
	for _, l := range b.pending {
		l.index = idx
		for _, s := range l.slots {
			b.unit.Code[s.op].Jump[s.slot] = idx
		}
		l.slots = nil
	}
	b.pending = b.pending[:0]
	return idx
}

func (b *Builder) newLabel(node ast.Node) *label {
	l := &label{node: node, index: -1}
	b.labels = append(b.labels, l)
	return l
}

// jumpTo points jump slot of instruction op at l.
func (b *Builder) jumpTo(op, slot int, l *label) {
	if l.index >= 0 {
		b.unit.Code[op].Jump[slot] = l.index
		return
	}
	b.unit.Code[op].Jump[slot] = Pending
	l.slots = append(l.slots, slotRef{op: op, slot: slot})
}

// bind makes l resolve to the next appended instruction.
func (b *Builder) bind(l *label) {
	b.pending = append(b.pending, l)
}

// Temp returns a new temporary of type t.
func (b *Builder) Temp(t types.TypeSpec) *symtab.Symbol {
	b.ntemps++
	sym := &symtab.Symbol{Name: "$tmp" + strconv.Itoa(b.ntemps), Type: t, SymType: symtab.SymTemp}
	b.table.InsertAnonymous(sym)
	return sym
}

// Const returns the constant symbol for value, creating it on first use.
// value is an int64, float64 or string.
func (b *Builder) Const(t types.TypeSpec, value interface{}) *symtab.Symbol {
	key := constKey{typ: t.String(), text: constText(value)}
	if sym, ok := b.consts[key]; ok {
		return sym
	}
	b.nconsts++
	sym := &symtab.Symbol{Name: "$const" + strconv.Itoa(b.nconsts), Type: t, SymType: symtab.SymConst, Value: value}
	b.table.InsertAnonymous(sym)
	b.consts[key] = sym
	return sym
}

// constText is the dedup key text. Floats use the float32 text the object
// file records, so literals that write the same share one constant.
func constText(value interface{}) string {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 32)
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprint(value)
}

func (b *Builder) stmt(s ast.Stmt) {
	if s != nil {
		_ = s.Accept(b)
	}
}

// expr generates e and returns the symbol holding its value, nil for a
// call with no result.
func (b *Builder) expr(e ast.Expr) *symtab.Symbol {
	result, _ := e.Accept(b)
	sym, _ := result.(*symtab.Symbol)
	return sym
}

func (b *Builder) internal(node ast.Node, format string, args ...interface{}) {
	pos := node.Pos()
	diag.Internalf(pos.Filename, pos.Line, format, args...)
}

// Statements

func (b *Builder) VisitExprStmt(stmt *ast.ExprStmt) error {
	b.expr(stmt.Expression)
	return nil
}

func (b *Builder) VisitDeclStmt(stmt *ast.DeclStmt) error {
	for _, d := range stmt.Decls {
		if !d.HasInit() {
			continue
		}
		if d.Sym == nil {
			b.internal(d, "declaration of %q has no symbol", d.Name.Name)
		}
		if d.DeclType.IsArray() {
			for i, e := range d.Init {
				v := b.expr(e)
				b.emit("aassign", d, d.Sym, b.Const(types.TypeInt, int64(i)), v)
			}
			continue
		}
		b.emit("assign", d, d.Sym, b.expr(d.Init[0]))
	}
	return nil
}

func (b *Builder) VisitBlockStmt(stmt *ast.BlockStmt) error {
	for _, s := range stmt.Statements {
		b.stmt(s)
	}
	return nil
}

// VisitIfStmt emits
//
//	<cond>
//	if cond         jump[0] = else (or end), jump[1] = end
//	<then>
//	<else>
func (b *Builder) VisitIfStmt(stmt *ast.IfStmt) error {
	cond := b.expr(stmt.Condition)
	op := b.emit("if", stmt, cond)
	end := b.newLabel(stmt)

	if stmt.ElseBranch == nil {
		b.jumpTo(op, 0, end)
		b.jumpTo(op, 1, end)
		b.stmt(stmt.ThenBranch)
		b.bind(end)
		return nil
	}

	els := b.newLabel(stmt.ElseBranch)
	b.jumpTo(op, 0, els)
	b.jumpTo(op, 1, end)
	b.stmt(stmt.ThenBranch)
	b.bind(els)
	b.stmt(stmt.ElseBranch)
	b.bind(end)
	return nil
}

func (b *Builder) VisitWhileStmt(stmt *ast.WhileStmt) error {
	b.loop("while", stmt, nil, stmt.Condition, stmt.Body, nil)
	return nil
}

func (b *Builder) VisitDoWhileStmt(stmt *ast.DoWhileStmt) error {
	b.loop("dowhile", stmt, nil, stmt.Condition, stmt.Body, nil)
	return nil
}

func (b *Builder) VisitForStmt(stmt *ast.ForStmt) error {
	b.loop("for", stmt, stmt.Init, stmt.Condition, stmt.Body, stmt.Post)
	return nil
}

// loop emits
//
//	<op> cond       jump = [condition, body, step, end]
//	<init>
//	<condition>
//	<body>
//	<step>
//
// The loop opcode comes first, so its condition operand is filled in once
// the condition has been generated.
func (b *Builder) loop(op string, node ast.Stmt, init ast.Stmt, cond ast.Expr, body ast.Stmt, step ast.Expr) {
	idx := b.emit(op, node)
	condL, bodyL, stepL, endL := b.newLabel(node), b.newLabel(node), b.newLabel(node), b.newLabel(node)
	for slot, l := range []*label{condL, bodyL, stepL, endL} {
		b.jumpTo(idx, slot, l)
	}

	b.stmt(init)

	b.bind(condL)
	var c *symtab.Symbol
	if cond != nil {
		c = b.expr(cond)
	} else {
		c = b.Const(types.TypeInt, int64(1))
	}
	b.unit.Code[idx].Args = []*symtab.Symbol{c}

	b.bind(bodyL)
	b.stmt(body)

	b.bind(stepL)
	if step != nil {
		b.expr(step)
	}
	b.bind(endL)
}

func (b *Builder) VisitReturnStmt(stmt *ast.ReturnStmt) error {
	b.emit("exit", stmt)
	return nil
}

func (b *Builder) VisitBreakStmt(stmt *ast.BreakStmt) error {
	b.emit("break", stmt)
	return nil
}

func (b *Builder) VisitContinueStmt(stmt *ast.ContinueStmt) error {
	b.emit("continue", stmt)
	return nil
}
