// Package symtab implements the symbol table of one compilation: scoped
// name resolution, mangled names that are unique across the whole shader,
// and the ordered symbol sequence the object file is written from.
//
// KEY DESIGN CHOICES:
//   - Lexical scoping; inner scopes may shadow outer ones.
//   - Every symbol (named or anonymous) is appended to one ordered
//     sequence when it is inserted. That order is the order the symbols
//     appear in the object file, so it never changes once assigned.
//   - Mangled names are assigned once, at insertion, from the declaring
//     scope, the source name and a per-table disambiguation counter.
package symtab

import (
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/semantic/types"
)

// SymType is the storage class of a symbol.
type SymType int

const (
	// SymGlobal is a built-in shader global such as P or Ci.
	SymGlobal SymType = iota

	// SymParam is a shader input parameter.
	SymParam

	// SymOutputParam is a shader output parameter.
	SymOutputParam

	// SymLocal is a variable declared in the shader body.
	SymLocal

	// SymTemp is a compiler temporary ($tmpN).
	SymTemp

	// SymConst is a deduplicated literal ($constN).
	SymConst

	// SymFunction is a built-in function name.
	SymFunction

	// SymTypeName is a struct type name.
	SymTypeName
)

// ShortName returns the name used for the symbol class in the object file.
func (st SymType) ShortName() string {
	switch st {
	case SymGlobal:
		return "global"
	case SymParam:
		return "param"
	case SymOutputParam:
		return "oparam"
	case SymLocal:
		return "local"
	case SymTemp:
		return "temp"
	case SymConst:
		return "const"
	case SymFunction:
		return "func"
	case SymTypeName:
		return "typename"
	default:
		return "unknown"
	}
}

// String is the same as ShortName.
func (st SymType) String() string { return st.ShortName() }

// IsParam reports whether st is an input or output parameter.
func (st SymType) IsParam() bool { return st == SymParam || st == SymOutputParam }

// Node is the declaration that introduced a symbol. The syntax tree
// package satisfies it; symtab never looks inside.
type Node interface {
	Pos() lexer.Position
}

// Symbol is a named or anonymous storage location.
type Symbol struct {
	// Name is the source name, or $tmpN / $constN for anonymous symbols.
	Name string

	// Mangled is unique within the compiled unit. It is assigned by the
	// table at insertion and never changes.
	Mangled string

	Type    types.TypeSpec
	SymType SymType

	// Scope is the scope the symbol was declared in.
	Scope *Scope

	// Node is the declaring node, nil for globals and temporaries.
	Node Node

	// Value is the literal value of a constant: int64, float64 or string.
	Value interface{}

	// Alias, when set, makes this symbol a stand-in for another one.
	// Use Table.Dealias to reach the canonical symbol.
	Alias *Symbol

	Pos lexer.Position

	// Used is set when the symbol is looked up by name.
	Used bool
}

// String returns "kind type name", e.g. "param float Kd".
func (s *Symbol) String() string {
	return s.SymType.ShortName() + " " + s.Type.String() + " " + s.Name
}

// ScopeID returns the id of the declaring scope, 0 for the global scope.
func (s *Symbol) ScopeID() int {
	if s.Scope == nil {
		return 0
	}
	return s.Scope.ID
}

// CanAssign reports whether the symbol may appear on the left of an
// assignment. Input parameters, constants and function names may not.
func (s *Symbol) CanAssign() bool {
	switch s.SymType {
	case SymGlobal, SymOutputParam, SymLocal, SymTemp:
		return true
	default:
		return false
	}
}

// MarkUsed marks this symbol as used.
func (s *Symbol) MarkUsed() {
	s.Used = true
}
