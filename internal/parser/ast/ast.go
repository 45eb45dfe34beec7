// Package ast defines the syntax tree handed from the parser to the type
// checker, the code generator and the object-file writer.
//
// DESIGN:
// The node set is closed. Every expression and statement kind is listed in
// the Visitor interface, so a pass that implements Visitor handles every
// node kind or does not compile. Passes that only need one kind (the
// object-file writer reading literal defaults) use the explicit accessors
// such as AsLiteral instead of inspecting nodes themselves.
//
// Every node reports the position it came from; positions carry the file
// and line of the original source after preprocessor line markers.
package ast

import (
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/semantic/types"
	"github.com/hassan/oslc/internal/symtab"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the starting position of this node in the source.
	Pos() lexer.Position
}

// Expr is the interface for all expression nodes.
//
// The type checker records the type of every expression with SetType;
// later passes read it back with Type.
type Expr interface {
	Node
	Accept(v Visitor) (interface{}, error)
	Type() types.TypeSpec
	SetType(t types.TypeSpec)
	exprNode()
}

// Stmt is the interface for all statement nodes.
type Stmt interface {
	Node
	Accept(v Visitor) error
	stmtNode()
}

// Visitor is the interface for AST traversal.
//
// EXAMPLE:
//
//	type checker struct{ ... }
//	func (c *checker) VisitBinaryExpr(expr *ast.BinaryExpr) (interface{}, error) {
//	    left, _ := expr.Left.Accept(c)
//	    right, _ := expr.Right.Accept(c)
//	    ...
//	}
type Visitor interface {
	// Expression visitors
	VisitLiteralExpr(expr *LiteralExpr) (interface{}, error)
	VisitIdentifierExpr(expr *IdentifierExpr) (interface{}, error)
	VisitBinaryExpr(expr *BinaryExpr) (interface{}, error)
	VisitLogicalExpr(expr *LogicalExpr) (interface{}, error)
	VisitUnaryExpr(expr *UnaryExpr) (interface{}, error)
	VisitAssignmentExpr(expr *AssignmentExpr) (interface{}, error)
	VisitIndexExpr(expr *IndexExpr) (interface{}, error)
	VisitMemberExpr(expr *MemberExpr) (interface{}, error)
	VisitCallExpr(expr *CallExpr) (interface{}, error)
	VisitConstructorExpr(expr *ConstructorExpr) (interface{}, error)
	VisitGroupingExpr(expr *GroupingExpr) (interface{}, error)

	// Statement visitors
	VisitExprStmt(stmt *ExprStmt) error
	VisitDeclStmt(stmt *DeclStmt) error
	VisitBlockStmt(stmt *BlockStmt) error
	VisitIfStmt(stmt *IfStmt) error
	VisitWhileStmt(stmt *WhileStmt) error
	VisitDoWhileStmt(stmt *DoWhileStmt) error
	VisitForStmt(stmt *ForStmt) error
	VisitReturnStmt(stmt *ReturnStmt) error
	VisitBreakStmt(stmt *BreakStmt) error
	VisitContinueStmt(stmt *ContinueStmt) error
}

// File is the root of the tree for one preprocessed translation unit.
type File struct {
	// Filename is the name handed to the parser, before line markers.
	Filename string

	// Structs are the struct declarations in source order.
	Structs []*StructDecl

	// Shaders are the shader declarations in source order. A well-formed
	// file has exactly one; the type checker reports anything else.
	Shaders []*ShaderDecl
}

// Shader returns the single shader of the file, or nil if there is none.
func (f *File) Shader() *ShaderDecl {
	if len(f.Shaders) == 0 {
		return nil
	}
	return f.Shaders[0]
}

// ShaderDecl is a shader definition:
//
//	surface plastic(float Kd = 0.5, output color Cout = 0) { ... }
type ShaderDecl struct {
	Kind   lexer.Token // surface, displacement, light, volume or shader
	Name   *IdentifierExpr
	Params []*VarDecl
	Body   *BlockStmt
}

func (s *ShaderDecl) Pos() lexer.Position { return s.Kind.Position }

// StructDecl declares a struct type:
//
//	struct Ray { point origin; vector dir; };
type StructDecl struct {
	StructPos lexer.Position
	Name      *IdentifierExpr
	Fields    []*VarDecl
}

func (s *StructDecl) Pos() lexer.Position { return s.StructPos }

// VarDecl declares one shader parameter, local variable or struct field.
//
// A declaration carries everything the later passes need: its type, its
// symbol (filled in by the type checker), its initializer list and its
// metadata entries.
type VarDecl struct {
	Name *IdentifierExpr

	// DeclType is the declared type, including array length and closure.
	DeclType types.TypeSpec

	// Output marks an output shader parameter.
	Output bool

	// Init is the initializer list. It has one element for "x = e" and
	// one element per entry for "a[3] = {1, 2, 3}". Nil means none.
	Init []Expr

	// Meta are the metadata entries of a parameter:
	//
	//	float Kd = 0.5 [[ string help = "diffuse", float min = 0 ]]
	Meta []*VarDecl

	// Sym is bound by the type checker.
	Sym *symtab.Symbol
}

func (d *VarDecl) Pos() lexer.Position { return d.Name.Pos() }

// HasInit reports whether the declaration has an initializer.
func (d *VarDecl) HasInit() bool { return len(d.Init) > 0 }

// Symbol returns the symbol bound to the declaration, or nil before type
// checking.
func (d *VarDecl) Symbol() *symtab.Symbol { return d.Sym }

// typed is embedded in every expression to hold its checked type.
type typed struct {
	typ types.TypeSpec
}

func (t *typed) Type() types.TypeSpec      { return t.typ }
func (t *typed) SetType(ts types.TypeSpec) { t.typ = ts }
